// Package paymentserver is the HTTP front of the payment gateway ledger.
package paymentserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

// Ledger is the account store behind the HTTP API.
type Ledger interface {
	Balance(ctx context.Context, clientID string) (decimal.Decimal, error)
	Debit(ctx context.Context, clientID, key string, amount decimal.Decimal) (domain.Receipt, error)
	Refund(ctx context.Context, clientID, key, paymentKey string, amount decimal.Decimal) (domain.Receipt, error)
}

type Deps struct {
	Ledger Ledger
	Auth   *Authenticator
	// Ready reports whether the backing store is reachable.
	Ready func(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func New(addr string, l *zap.Logger, deps Deps) *Server {
	l = logger.OrNop(l)
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           buildRouter(l, deps),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: l,
	}
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("payments listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func buildRouter(l *zap.Logger, deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(logger.GinMiddleware(l), logger.Recovery(l))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readyHandler(deps.Ready))

	h := &handlers{ledger: deps.Ledger}
	payments := router.Group("/payments")
	payments.GET("/balance", deps.Auth.Require(ScopeRead), h.balance)
	payments.POST("/pay", deps.Auth.Require(ScopeWrite), h.pay)
	payments.POST("/refund", deps.Auth.Require(ScopeWrite), h.refund)

	return router
}

func readyHandler(ready func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not reachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
