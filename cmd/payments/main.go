package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/ledger"
	"storefront/internal/logger"
	"storefront/internal/paymentserver"
)

func main() {
	cfg, err := config.PaymentsFromEnv()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := logger.New(logger.Config(cfg.Log)).Named("payments")
	defer func() { _ = log.Sync() }()

	db, err := ledger.Open(cfg.DBDriver, cfg.DBConnString, log)
	if err != nil {
		log.Fatal("open ledger", zap.Error(err))
	}
	defer func() { _ = ledger.Close(db) }()

	book := ledger.New(db, log)
	if err := book.EnsureAccounts(context.Background(), cfg.Accounts); err != nil {
		log.Fatal("seed accounts", zap.Error(err))
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, token checks disabled", zap.String("account", cfg.DefaultAccount))
	}

	srv := paymentserver.New(cfg.HTTPAddr, log, paymentserver.Deps{
		Ledger: book,
		Auth:   paymentserver.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.DefaultAccount),
		Ready: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

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
	}
}
