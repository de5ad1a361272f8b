package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	catalogsvc "storefront/internal/service/catalog"
)

const (
	defaultPageSize   = 10
	defaultPageNumber = 1
	maxPageSize       = 100
)

type handlers struct {
	deps Deps
}

func (h *handlers) listItems(c *gin.Context) {
	sort, err := domain.ParseSort(c.Query("sort"))
	if err != nil {
		writeError(c, err)
		return
	}
	pageNumber, err := intQuery(c, "pageNumber", defaultPageNumber)
	if err != nil {
		writeError(c, err)
		return
	}
	pageSize, err := intQuery(c, "pageSize", defaultPageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	if pageSize > maxPageSize {
		writeError(c, domain.ErrInvalidPage)
		return
	}

	page, err := h.deps.CatalogSvc.Page(c.Request.Context(), catalogsvc.PageQuery{
		Search:     c.Query("search"),
		Sort:       sort,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemsPage(page))
}

func (h *handlers) getItem(c *gin.Context) {
	id, ok := pathID(c, domain.ErrItemNotFound)
	if !ok {
		return
	}
	card, err := h.deps.CatalogSvc.ItemCard(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *handlers) getCart(c *gin.Context) {
	page, err := h.deps.CartSvc.PageData(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartPage(page))
}

type cartActionRequest struct {
	Action string `json:"action" binding:"required"`
}

func (h *handlers) updateCart(c *gin.Context) {
	id, ok := pathID(c, domain.ErrItemNotFound)
	if !ok {
		return
	}
	var req cartActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrInvalidAction)
		return
	}
	action, err := cartsvc.ParseAction(req.Action)
	if err != nil {
		writeError(c, err)
		return
	}

	cart, err := h.deps.CartSvc.Apply(c.Request.Context(), actorFrom(c), id, action)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCart(*cart))
}

func (h *handlers) buy(c *gin.Context) {
	order, err := h.deps.CheckoutSvc.BuyCart(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrder(*order))
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.deps.OrderSvc.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrders(orders))
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := pathID(c, domain.ErrOrderNotFound)
	if !ok {
		return
	}
	order, err := h.deps.OrderSvc.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(*order))
}

// pathID parses the :id segment. A malformed id cannot name anything, so it
// is reported as notFound.
func pathID(c *gin.Context, notFound error) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, notFound)
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidPage
	}
	return v, nil
}
