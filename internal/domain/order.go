package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is immutable once written. Total is the amount debited at checkout.
type Order struct {
	ID          int64           `json:"id"`
	OwnerID     string          `json:"ownerId"`
	CheckoutKey string          `json:"checkoutKey,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Items       []OrderItem     `json:"items"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// OrderItem keeps the item as it looked when the order was placed.
type OrderItem struct {
	OrderID     int64           `json:"orderId"`
	ItemID      int64           `json:"itemId"`
	Count       int             `json:"count"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImgPath     string          `json:"imgPath"`
	Price       decimal.Decimal `json:"price"`
}
