// Package ledger keeps payment account balances for the payments service.
// Every debit and refund is recorded under the caller's idempotency key so a
// retried request returns the original receipt instead of moving money twice.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

var (
	ErrInvalidAmount     = errors.New("amount must not be negative or have more than 2 decimal places")
	ErrInsufficientFunds = errors.New("Insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrKeyConflict       = errors.New("idempotency key already used for a different request")
	ErrAlreadyRefunded   = errors.New("payment already refunded")
	ErrRefundMismatch    = errors.New("refund amount does not match the payment")
)

type Ledger struct {
	db     *gorm.DB
	newID  func() string
	logger *zap.Logger
}

func New(db *gorm.DB, l *zap.Logger) *Ledger {
	return &Ledger{db: db, newID: uuid.NewString, logger: logger.OrNop(l).Named("ledger")}
}

// EnsureAccounts creates the given accounts with their opening balance.
// Existing accounts keep their current balance.
func (l *Ledger) EnsureAccounts(ctx context.Context, opening map[string]decimal.Decimal) error {
	for id, balance := range opening {
		acct := Account{ClientID: id, Balance: balance}
		err := l.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&acct).Error
		if err != nil {
			return fmt.Errorf("ensure account %s: %w", id, err)
		}
	}
	return nil
}

func (l *Ledger) Balance(ctx context.Context, clientID string) (decimal.Decimal, error) {
	var acct Account
	err := l.db.WithContext(ctx).Where("client_id = ?", clientID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

// Debit withdraws amount from the account. A zero amount succeeds without
// changing the balance.
func (l *Ledger) Debit(ctx context.Context, clientID, key string, amount decimal.Decimal) (domain.Receipt, error) {
	if !validAmount(amount) {
		return domain.Receipt{}, ErrInvalidAmount
	}

	var receipt domain.Receipt
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockAccount(tx, clientID)
		if err != nil {
			return err
		}

		prev, err := findEntry(tx, clientID, key)
		if err != nil {
			return err
		}
		if prev != nil {
			if prev.Kind != KindDebit || !prev.Amount.Equal(amount) {
				return ErrKeyConflict
			}
			receipt = debitReceipt(prev)
			return nil
		}

		if acct.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		entry, err := l.apply(tx, acct, Entry{
			ClientID:       clientID,
			IdempotencyKey: key,
			Kind:           KindDebit,
			Amount:         amount,
		}, acct.Balance.Sub(amount))
		if err != nil {
			return err
		}
		receipt = debitReceipt(entry)
		return nil
	})
	if err != nil {
		return domain.Receipt{}, err
	}
	l.logger.Info("debit", zap.String("client", clientID), zap.String("key", key),
		zap.String("amount", amount.String()), zap.String("balance", receipt.Balance.String()))
	return receipt, nil
}

// Refund returns a previous debit, identified by the debit's idempotency key,
// to the account. The refund must match the debit amount and a debit can be
// refunded once.
func (l *Ledger) Refund(ctx context.Context, clientID, key, paymentKey string, amount decimal.Decimal) (domain.Receipt, error) {
	if !validAmount(amount) {
		return domain.Receipt{}, ErrInvalidAmount
	}

	var receipt domain.Receipt
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockAccount(tx, clientID)
		if err != nil {
			return err
		}

		prev, err := findEntry(tx, clientID, key)
		if err != nil {
			return err
		}
		if prev != nil {
			if prev.Kind != KindRefund || prev.PaymentKey != paymentKey || !prev.Amount.Equal(amount) {
				return ErrKeyConflict
			}
			receipt = refundReceipt(prev)
			return nil
		}

		debit, err := findEntry(tx, clientID, paymentKey)
		if err != nil {
			return err
		}
		if debit == nil || debit.Kind != KindDebit {
			return ErrPaymentNotFound
		}
		if !debit.Amount.Equal(amount) {
			return ErrRefundMismatch
		}
		var refunded int64
		if err := tx.Model(&Entry{}).
			Where("client_id = ? AND kind = ? AND payment_key = ?", clientID, KindRefund, paymentKey).
			Count(&refunded).Error; err != nil {
			return err
		}
		if refunded > 0 {
			return ErrAlreadyRefunded
		}

		entry, err := l.apply(tx, acct, Entry{
			ClientID:       clientID,
			IdempotencyKey: key,
			Kind:           KindRefund,
			Amount:         amount,
			PaymentKey:     paymentKey,
		}, acct.Balance.Add(amount))
		if err != nil {
			return err
		}
		receipt = refundReceipt(entry)
		return nil
	})
	if err != nil {
		return domain.Receipt{}, err
	}
	l.logger.Info("refund", zap.String("client", clientID), zap.String("key", key),
		zap.String("payment", paymentKey), zap.String("amount", amount.String()))
	return receipt, nil
}

func (l *Ledger) apply(tx *gorm.DB, acct *Account, entry Entry, balance decimal.Decimal) (*Entry, error) {
	if err := tx.Model(acct).Update("balance", balance).Error; err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	entry.ID = l.newID()
	entry.BalanceAfter = balance
	if err := tx.Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrKeyConflict
		}
		return nil, fmt.Errorf("record entry: %w", err)
	}
	return &entry, nil
}

func lockAccount(tx *gorm.DB, clientID string) (*Account, error) {
	var acct Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("client_id = ?", clientID).
		First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func findEntry(tx *gorm.DB, clientID, key string) (*Entry, error) {
	var e Entry
	err := tx.Where("client_id = ? AND idempotency_key = ?", clientID, key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func debitReceipt(e *Entry) domain.Receipt {
	return domain.Receipt{
		PaymentID: e.ID,
		Message:   "Payment successful! Remaining balance: " + e.BalanceAfter.StringFixed(2),
		Balance:   e.BalanceAfter,
	}
}

func refundReceipt(e *Entry) domain.Receipt {
	return domain.Receipt{
		PaymentID: e.ID,
		Message:   "Refund successful! Balance: " + e.BalanceAfter.StringFixed(2),
		Balance:   e.BalanceAfter,
	}
}

// validAmount accepts non-negative amounts that fit the ledger's two decimal
// places. Trailing zeros past the second place are fine.
func validAmount(amount decimal.Decimal) bool {
	return !amount.IsNegative() && amount.Equal(amount.Truncate(2))
}
