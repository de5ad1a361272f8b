package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	"storefront/internal/payment"
	cartrepo "storefront/internal/repository/cart"
	checkoutrepo "storefront/internal/repository/checkout"
	itemrepo "storefront/internal/repository/item"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
)

// reconcile settles checkout attempts that were left pending or debited.
// Run it periodically, e.g. from cron.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	olderThan := flag.Duration("older-than", cfg.ReconcileAfter, "only touch attempts idle for at least this long")
	flag.Parse()

	log := logger.New(logger.Config(cfg.Log)).Named("reconcile")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	gateway := payment.New(cfg.Payments, log)
	carts := cartsvc.New(cartrepo.NewPostgres(pool, log), itemrepo.NewPostgres(pool, log), gateway, log)
	// A checkout may wait for a token and then for the debit, each bounded by the gateway timeout.
	coordinator := checkoutsvc.New(carts, checkoutrepo.NewPostgres(pool, log), gateway, log).
		WithMinIdle(2 * cfg.Payments.Timeout)

	report, err := coordinator.Reconcile(ctx, *olderThan)
	if err != nil {
		log.Fatal("reconcile", zap.Error(err), zap.Any("report", report))
	}
	log.Info("reconcile done",
		zap.Int("committed", report.Committed),
		zap.Int("compensated", report.Compensated),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
}
