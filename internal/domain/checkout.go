package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutState string

const (
	CheckoutPending     CheckoutState = "pending"
	CheckoutDebited     CheckoutState = "debited"
	CheckoutCommitted   CheckoutState = "committed"
	CheckoutFailed      CheckoutState = "failed"
	CheckoutCompensated CheckoutState = "compensated"
)

// Open reports whether the attempt still needs work before it is final.
func (s CheckoutState) Open() bool {
	return s == CheckoutPending || s == CheckoutDebited
}

// CheckoutAttempt records one run of the checkout saga. Key doubles as the
// idempotency key sent to the payment gateway.
type CheckoutAttempt struct {
	Key       string          `json:"key"`
	OwnerID   string          `json:"ownerId"`
	CartID    int64           `json:"cartId"`
	Amount    decimal.Decimal `json:"amount"`
	Lines     []CheckoutLine  `json:"lines"`
	State     CheckoutState   `json:"state"`
	PaymentID string          `json:"paymentId,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CheckoutLine snapshots a cart line at the moment the amount was computed.
type CheckoutLine struct {
	ItemID      int64           `json:"itemId"`
	Count       int             `json:"count"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImgPath     string          `json:"imgPath"`
	Price       decimal.Decimal `json:"price"`
}

func LinesFromCart(c Cart) []CheckoutLine {
	lines := make([]CheckoutLine, 0, len(c.Items))
	for _, ci := range c.Items {
		lines = append(lines, CheckoutLine{
			ItemID:      ci.ItemID,
			Count:       ci.Count,
			Title:       ci.Item.Title,
			Description: ci.Item.Description,
			ImgPath:     ci.Item.ImgPath,
			Price:       ci.Item.Price,
		})
	}
	return lines
}

// Counts returns the snapshot's unit count per item.
func (a CheckoutAttempt) Counts() map[int64]int {
	counts := make(map[int64]int, len(a.Lines))
	for _, l := range a.Lines {
		counts[l.ItemID] += l.Count
	}
	return counts
}

// OrderItems converts the snapshot into order lines.
func (a CheckoutAttempt) OrderItems() []OrderItem {
	items := make([]OrderItem, 0, len(a.Lines))
	for _, l := range a.Lines {
		items = append(items, OrderItem{
			ItemID:      l.ItemID,
			Count:       l.Count,
			Title:       l.Title,
			Description: l.Description,
			ImgPath:     l.ImgPath,
			Price:       l.Price,
		})
	}
	return items
}

// Receipt is the gateway's answer to a successful debit or refund.
type Receipt struct {
	PaymentID string          `json:"paymentId"`
	Message   string          `json:"message"`
	Balance   decimal.Decimal `json:"balance"`
}
