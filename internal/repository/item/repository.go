package item

import (
	"context"

	"storefront/internal/domain"
)

// Repository reads and writes the item catalog.
type Repository interface {
	// Count returns how many items match search. Blank search matches everything.
	Count(ctx context.Context, search string) (int64, error)
	// List returns at most limit matching items starting at offset, ordered by sort.
	List(ctx context.Context, search string, sort domain.Sort, offset, limit int) ([]domain.Item, error)
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	Upsert(ctx context.Context, item domain.Item) (*domain.Item, error)
}
