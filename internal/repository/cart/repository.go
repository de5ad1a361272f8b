package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository owns carts and their items. Count changes are single atomic
// statements or row-locked transactions so concurrent requests for the same
// cart never lose updates.
type Repository interface {
	// GetOrCreateByOwner returns the owner's cart, creating an empty one on first use.
	GetOrCreateByOwner(ctx context.Context, ownerID string) (*domain.Cart, error)
	// IncrementItem adds one unit, inserting the line with count 1 when absent.
	IncrementItem(ctx context.Context, cartID, itemID int64) error
	// DecrementItem removes one unit, deleting the line when it reaches zero.
	// A missing line is a no-op.
	DecrementItem(ctx context.Context, cartID, itemID int64) error
	// DeleteItem removes the line regardless of its count.
	DeleteItem(ctx context.Context, cartID, itemID int64) error
	// Clear removes every line of the cart.
	Clear(ctx context.Context, cartID int64) error
	// RemoveCounts takes counts[itemID] units off each line, deleting lines
	// that reach zero. Lines not named in counts are left alone.
	RemoveCounts(ctx context.Context, cartID int64, counts map[int64]int) error
}
