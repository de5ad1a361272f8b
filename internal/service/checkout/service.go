// Package checkout runs the buy-cart saga: debit the buyer, then turn the
// cart into an order, refunding when the order cannot be written.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
	checkoutrepo "storefront/internal/repository/checkout"
)

type cartStore interface {
	GetOrCreate(ctx context.Context, actor domain.Actor) (*domain.Cart, error)
}

type gateway interface {
	Debit(ctx context.Context, key string, amount decimal.Decimal) (domain.Receipt, error)
	Refund(ctx context.Context, key, paymentKey string, amount decimal.Decimal) (domain.Receipt, error)
}

// Coordinator moves each checkout attempt through
// pending -> debited -> committed, or to failed / compensated.
type Coordinator struct {
	carts    cartStore
	attempts checkoutrepo.Repository
	gateway  gateway
	newKey   func() string
	now      func() time.Time
	minIdle  time.Duration
	logger   *zap.Logger
}

// ErrIdleTooShort is returned by Reconcile when olderThan could still catch
// a BuyCart waiting on the gateway.
var ErrIdleTooShort = errors.New("reconcile idle threshold shorter than a checkout can run")

func New(carts cartStore, attempts checkoutrepo.Repository, gw gateway, l *zap.Logger) *Coordinator {
	return &Coordinator{
		carts:    carts,
		attempts: attempts,
		gateway:  gw,
		newKey:   uuid.NewString,
		now:      time.Now,
		logger:   logger.OrNop(l).Named("checkout"),
	}
}

// WithMinIdle makes Reconcile refuse thresholds below d. Set it to the longest
// time a BuyCart call can spend in the gateway.
func (c *Coordinator) WithMinIdle(d time.Duration) *Coordinator {
	c.minIdle = d
	return c
}

// BuyCart charges the actor for the current cart contents and returns the
// resulting order. Nothing is retried here; stuck attempts are picked up by
// Reconcile.
func (c *Coordinator) BuyCart(ctx context.Context, actor domain.Actor) (*domain.Order, error) {
	if actor.Anonymous() {
		return nil, domain.ErrAccessDenied
	}

	cart, err := c.carts.GetOrCreate(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.ID == 0 {
		return nil, domain.ErrCartNotPersisted
	}

	attempt := domain.CheckoutAttempt{
		Key:     c.newKey(),
		OwnerID: actor.OwnerID,
		CartID:  cart.ID,
		Amount:  cart.Total(),
		Lines:   domain.LinesFromCart(*cart),
		State:   domain.CheckoutPending,
	}
	if err := c.attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}
	log := c.logger.With(
		zap.String("key", attempt.Key),
		zap.String("owner", attempt.OwnerID),
		zap.Int64("cart", attempt.CartID),
		zap.String("amount", attempt.Amount.String()),
	)

	receipt, err := c.gateway.Debit(ctx, attempt.Key, attempt.Amount)
	if err != nil {
		return nil, c.debitFailed(ctx, log, attempt, err)
	}

	if err := c.attempts.Transition(ctx, attempt.Key, domain.CheckoutPending, domain.CheckoutDebited, receipt.PaymentID, ""); err != nil {
		log.Error("record debit", zap.Error(err))
		return nil, c.compensate(ctx, log, attempt, domain.CheckoutPending, err)
	}

	order, err := c.attempts.Commit(ctx, attempt.Key)
	if err != nil {
		log.Error("commit order", zap.Error(err))
		return nil, c.compensate(ctx, log, attempt, domain.CheckoutDebited, err)
	}
	log.Info("checkout committed", zap.Int64("order", order.ID), zap.String("payment", receipt.PaymentID))
	return order, nil
}

func (c *Coordinator) debitFailed(ctx context.Context, log *zap.Logger, attempt domain.CheckoutAttempt, err error) error {
	var declined *domain.DeclinedError
	if errors.As(err, &declined) {
		if terr := c.attempts.Transition(ctx, attempt.Key, domain.CheckoutPending, domain.CheckoutFailed, "", declined.Reason); terr != nil {
			log.Error("record declined debit", zap.Error(terr))
		}
		log.Info("payment declined", zap.String("reason", declined.Reason))
		return &domain.PaymentFailedError{Reason: declined.Reason, Err: err}
	}

	// The outcome is unknown; the attempt stays pending for Reconcile.
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		err = fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	log.Warn("payment gateway unavailable", zap.Error(err))
	return &domain.PaymentFailedError{Reason: err.Error(), Err: err}
}

// compensate refunds the attempt's debit and marks it compensated. When the
// refund itself fails the attempt is left in from for Reconcile.
func (c *Coordinator) compensate(ctx context.Context, log *zap.Logger, attempt domain.CheckoutAttempt, from domain.CheckoutState, cause error) error {
	if _, err := c.gateway.Refund(ctx, refundKey(attempt.Key), attempt.Key, attempt.Amount); err != nil {
		log.Error("refund failed, left for reconciliation", zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrCheckoutNotCommitted, cause)
	}
	if err := c.attempts.Transition(ctx, attempt.Key, from, domain.CheckoutCompensated, "", cause.Error()); err != nil {
		log.Error("record compensation", zap.Error(err))
	}
	log.Warn("checkout compensated", zap.NamedError("cause", cause))
	return fmt.Errorf("%w: %v", domain.ErrCheckoutNotCommitted, cause)
}

// refundKey derives a stable idempotency key for the refund of a debit.
func refundKey(debitKey string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("refund:"+debitKey)).String()
}

// ReconcileReport counts what Reconcile did with each stale attempt.
type ReconcileReport struct {
	Committed   int
	Compensated int
	Failed      int
	Skipped     int
}

// Reconcile settles attempts left open for longer than olderThan.
// Debited attempts get their commit retried and are refunded when it fails
// again. Pending attempts have an unknown debit outcome and were reported to
// the buyer as failed, so any debit recorded under their key is refunded.
func (c *Coordinator) Reconcile(ctx context.Context, olderThan time.Duration) (ReconcileReport, error) {
	var report ReconcileReport
	if olderThan < c.minIdle {
		return report, fmt.Errorf("%w: %s < %s", ErrIdleTooShort, olderThan, c.minIdle)
	}
	stale, err := c.attempts.ListStale(ctx, c.now().Add(-olderThan), domain.CheckoutPending, domain.CheckoutDebited)
	if err != nil {
		return report, fmt.Errorf("list stale attempts: %w", err)
	}

	for _, a := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		log := c.logger.With(zap.String("key", a.Key), zap.String("state", string(a.State)))

		switch a.State {
		case domain.CheckoutDebited:
			order, err := c.attempts.Commit(ctx, a.Key)
			if err == nil {
				log.Info("reconciled by commit", zap.Int64("order", order.ID))
				report.Committed++
				continue
			}
			if errors.Is(err, domain.ErrCheckoutStateChanged) {
				report.Skipped++
				continue
			}
			log.Warn("commit retry failed", zap.Error(err))
			if _, err := c.gateway.Refund(ctx, refundKey(a.Key), a.Key, a.Amount); err != nil {
				log.Error("refund failed", zap.Error(err))
				report.Skipped++
				continue
			}
			c.settle(ctx, log, a, domain.CheckoutCompensated, "commit failed during reconciliation", &report.Compensated, &report.Skipped)

		case domain.CheckoutPending:
			_, err := c.gateway.Refund(ctx, refundKey(a.Key), a.Key, a.Amount)
			var declined *domain.DeclinedError
			switch {
			case err == nil:
				c.settle(ctx, log, a, domain.CheckoutCompensated, "debit outcome unknown at checkout", &report.Compensated, &report.Skipped)
			case errors.As(err, &declined):
				// the gateway has no debit under this key
				c.settle(ctx, log, a, domain.CheckoutFailed, declined.Reason, &report.Failed, &report.Skipped)
			default:
				log.Warn("gateway unavailable, will retry", zap.Error(err))
				report.Skipped++
			}
		}
	}
	return report, nil
}

func (c *Coordinator) settle(ctx context.Context, log *zap.Logger, a domain.CheckoutAttempt, to domain.CheckoutState, reason string, done, skipped *int) {
	if err := c.attempts.Transition(ctx, a.Key, a.State, to, "", reason); err != nil {
		log.Error("record reconciliation", zap.String("to", string(to)), zap.Error(err))
		*skipped++
		return
	}
	log.Info("reconciled", zap.String("to", string(to)))
	*done++
}
