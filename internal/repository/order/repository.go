package order

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// Create stores the order and its items atomically and returns it with
	// the assigned id and creation time.
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByCheckoutKey(ctx context.Context, key string) (*domain.Order, error)
}
