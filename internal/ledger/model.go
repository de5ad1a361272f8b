package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	KindDebit  EntryKind = "debit"
	KindRefund EntryKind = "refund"
)

// Account is one caller's balance.
type Account struct {
	ClientID  string          `gorm:"primaryKey;size:128"`
	Balance   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is an applied debit or refund. IdempotencyKey is unique per account;
// a refund points at the debit it reverses through PaymentKey.
type Entry struct {
	ID             string          `gorm:"primaryKey;size:36"`
	ClientID       string          `gorm:"size:128;not null;uniqueIndex:idx_entries_client_key,priority:1"`
	IdempotencyKey string          `gorm:"size:128;not null;uniqueIndex:idx_entries_client_key,priority:2"`
	Kind           EntryKind       `gorm:"size:16;not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaymentKey     string          `gorm:"size:128;index"`
	BalanceAfter   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt      time.Time
}

func (Entry) TableName() string {
	return "ledger_entries"
}

func (Account) TableName() string {
	return "ledger_accounts"
}
