package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/logger"
	"storefront/internal/payment"
	cartrepo "storefront/internal/repository/cart"
	checkoutrepo "storefront/internal/repository/checkout"
	itemrepo "storefront/internal/repository/item"
	orderrepo "storefront/internal/repository/order"
	cartsvc "storefront/internal/service/cart"
	catalogsvc "storefront/internal/service/catalog"
	checkoutsvc "storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/order"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := logger.New(logger.Config(cfg.Log)).Named("shop")
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	pages, err := cache.New(cfg, log)
	if err != nil {
		log.Fatal("init page cache", zap.Error(err))
	}
	if c, ok := pages.(io.Closer); ok {
		defer c.Close()
	}

	gateway := payment.New(cfg.Payments, log)

	itemRepo := itemrepo.NewPostgres(dbpool, log)
	cartRepo := cartrepo.NewPostgres(dbpool, log)
	orderRepo := orderrepo.NewPostgres(dbpool, log)
	attemptRepo := checkoutrepo.NewPostgres(dbpool, log)

	catalogService, err := catalogsvc.New(itemRepo, pages, catalogsvc.Options{
		ChunkSize:     cfg.Cache.ChunkSize,
		CardCacheSize: cfg.Cache.ItemCardSize,
	}, log)
	if err != nil {
		log.Fatal("init catalog", zap.Error(err))
	}
	cartService := cartsvc.New(cartRepo, itemRepo, gateway, log)
	checkoutService := checkoutsvc.New(cartService, attemptRepo, gateway, log)
	orderService := ordersvc.New(orderRepo, log)

	srv, err := httpserver.New(cfg.HTTPAddr, log, dbpool, httpserver.Deps{
		CatalogSvc:  catalogService,
		CartSvc:     cartService,
		CheckoutSvc: checkoutService,
		OrderSvc:    orderService,
	}, cfg.CORSAllowOrigins)
	if err != nil {
		log.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("server stopped")
	}
}
