package httpserver

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
	cartsvc "storefront/internal/service/cart"
	catalogsvc "storefront/internal/service/catalog"
)

// ActorHeader carries the owner id forwarded by the auth proxy in front of
// the shop. No header means an anonymous visitor.
const ActorHeader = "X-User-ID"

type catalogService interface {
	Page(ctx context.Context, q catalogsvc.PageQuery) (domain.Page[domain.ItemListDto], error)
	ItemCard(ctx context.Context, id int64) (domain.ItemCard, error)
}

type cartService interface {
	PageData(ctx context.Context, actor domain.Actor) (domain.CartPage, error)
	Apply(ctx context.Context, actor domain.Actor, itemID int64, action cartsvc.Action) (*domain.Cart, error)
}

type checkoutService interface {
	BuyCart(ctx context.Context, actor domain.Actor) (*domain.Order, error)
}

type orderService interface {
	List(ctx context.Context, actor domain.Actor) ([]domain.Order, error)
	Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Order, error)
}

// Deps groups the services behind the shop routes.
type Deps struct {
	CatalogSvc  catalogService
	CartSvc     cartService
	CheckoutSvc checkoutService
	OrderSvc    orderService
}

func (d Deps) validate() error {
	if d.CatalogSvc == nil || d.CartSvc == nil || d.CheckoutSvc == nil || d.OrderSvc == nil {
		return errors.New("httpserver: all services are required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(l *zap.Logger, db *pgxpool.Pool, deps Deps, corsOrigins []string) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(logger.GinMiddleware(l), logger.Recovery(l), corsMiddleware(corsOrigins))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps}
	router.GET("/items", h.listItems)
	router.GET("/items/:id", h.getItem)
	router.GET("/cart", h.getCart)
	router.POST("/cart/items/:id", h.updateCart)
	router.POST("/buy", h.buy)
	router.GET("/orders", h.listOrders)
	router.GET("/orders/:id", h.getOrder)

	return router, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, ActorHeader)
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func actorFrom(c *gin.Context) domain.Actor {
	return domain.Actor{OwnerID: strings.TrimSpace(c.GetHeader(ActorHeader))}
}
