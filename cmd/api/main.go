package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/marketplace-cart/api/routes"
	"github.com/angelmondragon/marketplace-cart/internal/cart"
	"github.com/angelmondragon/marketplace-cart/internal/storage"
	"github.com/angelmondragon/marketplace-cart/pkg/config"
	"github.com/angelmondragon/marketplace-cart/pkg/instance"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
	"github.com/angelmondragon/marketplace-cart/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"backend":  cfg.Storage.Backend,
		"instance": instance.GetID("api-0"),
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server stopped")
}

// run serves until ctx ends or the listener fails. Either way the cart is
// drained and storage is released before it returns.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	backend, err := storage.Open(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("bootstrap storage: %w", err)
	}
	defer func() {
		err = multierr.Append(err, backend.Close())
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := cart.Open(ctx, cart.Params{
		KV:           backend.KV(),
		Key:          cfg.Cart.StorageKey,
		Logger:       logg,
		Metrics:      metrics.NewCartMetrics(reg),
		WriteTimeout: cfg.Cart.WriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("open cart store: %w", err)
	}

	addr := fmt.Sprintf(":%s", cfg.App.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, store, backend, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", addr), "api server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	// close the cart first so event streams end and Shutdown can finish
	if closeErr := store.Close(shutdownCtx); closeErr != nil {
		logg.Error(shutdownCtx, "cart store did not drain cleanly", closeErr)
		err = multierr.Append(err, closeErr)
	}
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		err = multierr.Append(err, fmt.Errorf("shutdown api server: %w", shutdownErr))
	}
	return err
}
