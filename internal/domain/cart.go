package domain

import "github.com/shopspring/decimal"

// Actor identifies the caller. An empty OwnerID is an anonymous visitor.
type Actor struct {
	OwnerID string
}

func (a Actor) Anonymous() bool {
	return a.OwnerID == ""
}

// Cart belongs to exactly one owner. ID 0 means the cart was never persisted.
type Cart struct {
	ID      int64      `json:"id"`
	OwnerID string     `json:"ownerId,omitempty"`
	Items   []CartItem `json:"items"`
}

type CartItem struct {
	CartID int64 `json:"cartId"`
	ItemID int64 `json:"itemId"`
	Count  int   `json:"count"`
	Item   Item  `json:"item"`
}

func (ci CartItem) LineTotal() decimal.Decimal {
	return ci.Item.Price.Mul(decimal.NewFromInt(int64(ci.Count)))
}

// Total sums price times count using the current catalog prices.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, ci := range c.Items {
		total = total.Add(ci.LineTotal())
	}
	return total
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// CartPage is what the cart screen renders.
type CartPage struct {
	Items      []CartItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Empty      bool            `json:"empty"`
	Balance    decimal.Decimal `json:"balance"`
	DisableBuy bool            `json:"disableBuy"`
}
