package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/marketplace-cart/internal/cart"
	"github.com/angelmondragon/marketplace-cart/internal/storage"
	"github.com/angelmondragon/marketplace-cart/pkg/config"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openConfigured).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cartctl:", err)
		os.Exit(1)
	}
}

// openConfigured opens the cart on the backend selected by the environment.
// Logs go to stderr so stdout stays machine readable.
func openConfigured(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logg := logger.New(logger.Options{
		ServiceName: "cartctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	backend, err := storage.Open(ctx, cfg, logg)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	store, err := cart.Open(ctx, cart.Params{
		KV:           backend.KV(),
		Key:          cfg.Cart.StorageKey,
		Logger:       logg,
		WriteTimeout: cfg.Cart.WriteTimeout,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return &session{store: store, release: backend.Close}, nil
}
