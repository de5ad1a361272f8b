package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logger"
	cartrepo "storefront/internal/repository/cart"
	orderrepo "storefront/internal/repository/order"
)

const pgUniqueViolation = "23505"

type postgresRepo struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewPostgres(conn db.DBTX, l *zap.Logger) Repository {
	return &postgresRepo{db: conn, logger: logger.OrNop(l).Named("checkout_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, a domain.CheckoutAttempt) error {
	key, err := uuid.Parse(a.Key)
	if err != nil {
		return fmt.Errorf("checkout key: %w", err)
	}
	lines, err := json.Marshal(a.Lines)
	if err != nil {
		return fmt.Errorf("encode lines: %w", err)
	}
	_, err = r.db.Exec(ctx, `
INSERT INTO checkout_attempts (key, owner_id, cart_id, amount, lines, state)
VALUES ($1, $2, $3, $4::numeric, $5, $6)
`, key, a.OwnerID, a.CartID, a.Amount.String(), lines, string(a.State))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrCheckoutInProgress
		}
		return err
	}
	return nil
}

const attemptColumns = `key::text, owner_id, cart_id, amount::text, lines, state, payment_id, reason, created_at, updated_at`

func (r *postgresRepo) Get(ctx context.Context, key string) (*domain.CheckoutAttempt, error) {
	return getAttempt(ctx, r.db, key, false)
}

func getAttempt(ctx context.Context, conn db.DBTX, key string, forUpdate bool) (*domain.CheckoutAttempt, error) {
	k, err := uuid.Parse(key)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE key = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	a, err := scanAttempt(conn.QueryRow(ctx, q, k))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

func (r *postgresRepo) Transition(ctx context.Context, key string, from, to domain.CheckoutState, paymentID, reason string) error {
	return transition(ctx, r.db, key, from, to, paymentID, reason)
}

func transition(ctx context.Context, conn db.DBTX, key string, from, to domain.CheckoutState, paymentID, reason string) error {
	k, err := uuid.Parse(key)
	if err != nil {
		return domain.ErrNotFound
	}
	tag, err := conn.Exec(ctx, `
UPDATE checkout_attempts
SET state = $3,
    payment_id = CASE WHEN $4 = '' THEN payment_id ELSE $4 END,
    reason = CASE WHEN $5 = '' THEN reason ELSE $5 END,
    updated_at = now()
WHERE key = $1 AND state = $2
`, k, string(from), string(to), paymentID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCheckoutStateChanged
	}
	return nil
}

func (r *postgresRepo) ListStale(ctx context.Context, before time.Time, states ...domain.CheckoutState) ([]domain.CheckoutAttempt, error) {
	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, string(s))
	}
	rows, err := r.db.Query(ctx, `
SELECT `+attemptColumns+`
FROM checkout_attempts
WHERE state = ANY($1) AND updated_at < $2
ORDER BY updated_at ASC
`, names, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CheckoutAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *postgresRepo) Commit(ctx context.Context, key string) (*domain.Order, error) {
	var order *domain.Order
	err := db.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		a, err := getAttempt(ctx, tx, key, true)
		if err != nil {
			return err
		}
		orders := orderrepo.NewPostgres(tx, r.logger)

		switch a.State {
		case domain.CheckoutCommitted:
			order, err = orders.GetByCheckoutKey(ctx, key)
			return err
		case domain.CheckoutDebited:
		default:
			return domain.ErrCheckoutStateChanged
		}

		order, err = orders.Create(ctx, domain.Order{
			OwnerID:     a.OwnerID,
			CheckoutKey: a.Key,
			Total:       a.Amount,
			Items:       a.OrderItems(),
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := cartrepo.NewPostgres(tx, r.logger).RemoveCounts(ctx, a.CartID, a.Counts()); err != nil {
			return fmt.Errorf("clear purchased lines: %w", err)
		}
		return transition(ctx, tx, key, domain.CheckoutDebited, domain.CheckoutCommitted, "", "")
	})
	if err != nil {
		r.logger.Warn("commit failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return order, nil
}

func scanAttempt(row pgx.Row) (*domain.CheckoutAttempt, error) {
	var (
		a      domain.CheckoutAttempt
		amount string
		lines  []byte
		state  string
	)
	if err := row.Scan(&a.Key, &a.OwnerID, &a.CartID, &amount, &lines, &state, &a.PaymentID, &a.Reason, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("attempt %s: parse amount: %w", a.Key, err)
	}
	if err := json.Unmarshal(lines, &a.Lines); err != nil {
		return nil, fmt.Errorf("attempt %s: decode lines: %w", a.Key, err)
	}
	a.State = domain.CheckoutState(state)
	return &a, nil
}
