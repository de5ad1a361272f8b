package httpserver

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type itemsPageResponse struct {
	Content       []domain.ItemListDto `json:"content"`
	PageNumber    int                  `json:"pageNumber"`
	PageSize      int                  `json:"pageSize"`
	TotalElements int64                `json:"totalElements"`
	TotalPages    int                  `json:"totalPages"`
	HasPrevious   bool                 `json:"hasPrevious"`
	HasNext       bool                 `json:"hasNext"`
}

func toItemsPage(p domain.Page[domain.ItemListDto]) itemsPageResponse {
	start := int64(p.PageNumber-1) * int64(p.PageSize)
	content := p.Content
	if content == nil {
		content = []domain.ItemListDto{}
	}
	return itemsPageResponse{
		Content:       content,
		PageNumber:    p.PageNumber,
		PageSize:      p.PageSize,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages(),
		HasPrevious:   p.PageNumber > 1,
		HasNext:       start+int64(len(p.Content)) < p.TotalElements,
	}
}

type cartLine struct {
	ItemID    int64           `json:"itemId"`
	Title     string          `json:"title"`
	ImgPath   string          `json:"imgPath"`
	Price     decimal.Decimal `json:"price"`
	Count     int             `json:"count"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type cartResponse struct {
	Items      []cartLine      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Empty      bool            `json:"empty"`
	Balance    decimal.Decimal `json:"balance"`
	DisableBuy bool            `json:"disableBuy"`
}

func toCartLines(items []domain.CartItem) []cartLine {
	lines := make([]cartLine, 0, len(items))
	for _, ci := range items {
		lines = append(lines, cartLine{
			ItemID:    ci.ItemID,
			Title:     ci.Item.Title,
			ImgPath:   ci.Item.ImgPath,
			Price:     ci.Item.Price,
			Count:     ci.Count,
			LineTotal: ci.LineTotal(),
		})
	}
	return lines
}

func toCartPage(p domain.CartPage) cartResponse {
	return cartResponse{
		Items:      toCartLines(p.Items),
		Total:      p.Total,
		Empty:      p.Empty,
		Balance:    p.Balance,
		DisableBuy: p.DisableBuy,
	}
}

func toCart(c domain.Cart) cartResponse {
	return cartResponse{
		Items: toCartLines(c.Items),
		Total: c.Total(),
		Empty: c.IsEmpty(),
	}
}

type orderLine struct {
	ItemID      int64           `json:"itemId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImgPath     string          `json:"imgPath"`
	Price       decimal.Decimal `json:"price"`
	Count       int             `json:"count"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type orderResponse struct {
	ID        int64           `json:"id"`
	Total     decimal.Decimal `json:"total"`
	Items     []orderLine     `json:"items"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toOrder(o domain.Order) orderResponse {
	lines := make([]orderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, orderLine{
			ItemID:      it.ItemID,
			Title:       it.Title,
			Description: it.Description,
			ImgPath:     it.ImgPath,
			Price:       it.Price,
			Count:       it.Count,
			LineTotal:   it.Price.Mul(decimal.NewFromInt(int64(it.Count))),
		})
	}
	return orderResponse{ID: o.ID, Total: o.Total, Items: lines, CreatedAt: o.CreatedAt}
}

func toOrders(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrder(o))
	}
	return out
}
