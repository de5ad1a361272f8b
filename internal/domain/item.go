package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImgPath     string          `json:"imgPath"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ItemListDto is the row shown on catalog pages.
type ItemListDto struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImgPath     string          `json:"imgPath"`
}

// ItemCard is the single item view.
type ItemCard struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImgPath     string          `json:"imgPath"`
}

func (i Item) ListView() ItemListDto {
	return ItemListDto{ID: i.ID, Title: i.Title, Description: i.Description, Price: i.Price, ImgPath: i.ImgPath}
}

func (i Item) Card() ItemCard {
	return ItemCard{ID: i.ID, Title: i.Title, Description: i.Description, Price: i.Price, ImgPath: i.ImgPath}
}

// Sort selects catalog ordering.
type Sort string

const (
	SortNone  Sort = "NO"
	SortAlpha Sort = "ALPHA"
	SortPrice Sort = "PRICE"
)

// ParseSort maps a request value to a Sort. Blank means SortNone.
func ParseSort(v string) (Sort, error) {
	switch Sort(strings.ToUpper(strings.TrimSpace(v))) {
	case "", SortNone:
		return SortNone, nil
	case SortAlpha:
		return SortAlpha, nil
	case SortPrice:
		return SortPrice, nil
	default:
		return "", ErrInvalidSort
	}
}
