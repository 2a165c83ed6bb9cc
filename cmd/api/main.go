package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/safar/artisan-storefront/internal/backend"
	"github.com/safar/artisan-storefront/internal/checkout"
	"github.com/safar/artisan-storefront/internal/config"
	"github.com/safar/artisan-storefront/internal/database"
	"github.com/safar/artisan-storefront/internal/handlers"
	"github.com/safar/artisan-storefront/internal/logging"
	"github.com/safar/artisan-storefront/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db, database.MigrateUp)
	if err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}
	logger.Info("database ready",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("migrations", applied))

	kv := database.NewSQLKV(db, database.Dialect(cfg.Database.Driver))
	cart := store.NewCartStore(ctx, kv, logger)
	wishlist := store.NewWishlistStore(ctx, kv, logger)
	orders := store.NewOrderStore(ctx, kv, logger)

	client := backend.NewClient(cfg.Backend, logger)
	svc := checkout.NewService(cart, orders, client, checkout.RatesFromConfig(cfg.Checkout), logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlers.New(cart, wishlist, orders, svc, logger).Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server", zap.Error(err))
	}

	for name, closer := range map[string]interface{ Close(context.Context) error }{
		"cart":     cart,
		"wishlist": wishlist,
		"orders":   orders,
	} {
		if err := closer.Close(shutdownCtx); err != nil {
			logger.Error("flush store", zap.String("store", name), zap.Error(err))
		}
	}
}
