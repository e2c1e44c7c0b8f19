package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/franchisehub/api/internal/handlers"
	"github.com/franchisehub/api/internal/platform/config"
	"github.com/franchisehub/api/internal/platform/database"
	"github.com/franchisehub/api/internal/platform/idempotency"
	"github.com/franchisehub/api/internal/platform/observability"
	"github.com/franchisehub/api/internal/repositories/mysql"
	"github.com/franchisehub/api/internal/services"
	"github.com/franchisehub/api/migrations"
)

const shutdownGrace = 15 * time.Second

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("api terminated", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.MigrationsUp {
		if err := db.MigrateUp(migrations.FS); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	vatPolicy := services.FlatRateVatPolicy{RateBasisPoints: cfg.Pricing.VatRateBasisPoints}

	storeResolver, err := services.NewStoreResolver(
		mysql.NewUserRepository(db),
		mysql.NewStoreRepository(db),
	)
	if err != nil {
		return err
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     mysql.NewOrderRepository(db),
		Products:   mysql.NewProductRepository(db),
		Counters:   mysql.NewCounterRepository(db),
		Stores:     storeResolver,
		Pricer:     services.NewPricer(vatPolicy),
		UnitOfWork: db,
	})
	if err != nil {
		return err
	}

	ordersHandler, err := handlers.NewOrdersHandler(orderService, services.NewOrderProjector(vatPolicy))
	if err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:            logger,
		Orders:            ordersHandler,
		Health:            handlers.NewHealthHandler(db),
		IdempotencyStore:  idempotency.NewMemoryStore(),
		IdempotencyHeader: cfg.Idempotency.Header,
		IdempotencyTTL:    cfg.Idempotency.TTL,
		RequestTimeout:    cfg.Server.WriteTimeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
