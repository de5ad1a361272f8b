package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type itemWriter interface {
	Upsert(ctx context.Context, item domain.Item) (*domain.Item, error)
}

type itemSeed struct {
	Title       string
	Description string
	ImgPath     string
	Price       string
}

var demoItems = []itemSeed{
	{"Demo T-Shirt", "Soft cotton tee for demo purposes", "/images/tshirt.jpg", "19.99"},
	{"Demo Mug", "Ceramic mug with demo logo", "/images/mug.jpg", "12.99"},
	{"Notebook", "A5 dotted notebook, 120 pages", "/images/notebook.jpg", "7.50"},
	{"Pen Set", "Three gel pens in black, blue and red", "/images/pens.jpg", "4.20"},
	{"Sticker Pack", "Ten vinyl stickers", "/images/stickers.jpg", "2.50"},
	{"Tote Bag", "Canvas tote bag with demo print", "/images/tote.jpg", "15.00"},
	{"Water Bottle", "Insulated steel bottle, 500 ml", "/images/bottle.jpg", "24.90"},
}

// Apply inserts basic seed data for manual testing. It is idempotent since
// items upsert by title.
func Apply(ctx context.Context, items itemWriter) (int, error) {
	for i, s := range demoItems {
		price, err := decimal.NewFromString(s.Price)
		if err != nil {
			return i, fmt.Errorf("seed %q: %w", s.Title, err)
		}
		item := domain.Item{Title: s.Title, Description: s.Description, ImgPath: s.ImgPath, Price: price}
		if _, err := items.Upsert(ctx, item); err != nil {
			return i, fmt.Errorf("upsert item %q: %w", s.Title, err)
		}
	}
	return len(demoItems), nil
}
