package checkout

import (
	"context"
	"time"

	"storefront/internal/domain"
)

// Repository persists checkout attempts and commits a debited attempt into
// an order.
type Repository interface {
	// Create stores a new pending attempt. It fails with
	// domain.ErrCheckoutInProgress when the cart already has an open attempt.
	Create(ctx context.Context, attempt domain.CheckoutAttempt) error
	Get(ctx context.Context, key string) (*domain.CheckoutAttempt, error)
	// Transition moves the attempt from one state to another, recording the
	// payment id and reason when non-empty. It fails with
	// domain.ErrCheckoutStateChanged when the attempt is not in from.
	Transition(ctx context.Context, key string, from, to domain.CheckoutState, paymentID, reason string) error
	// ListStale returns attempts in one of states not updated since before.
	ListStale(ctx context.Context, before time.Time, states ...domain.CheckoutState) ([]domain.CheckoutAttempt, error)
	// Commit writes the order from the attempt snapshot, clears the cart and
	// marks the attempt committed in a single transaction. Committing an
	// already committed attempt returns the existing order.
	Commit(ctx context.Context, key string) (*domain.Order, error)
}
