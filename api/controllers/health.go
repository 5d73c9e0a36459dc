package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/marketplace-cart/api/responses"
	"github.com/angelmondragon/marketplace-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
)

const readyPingTimeout = 2 * time.Second

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LoadState reports the cart's initial load.
type LoadState interface {
	Loaded() bool
	LoadErr() error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Marketplace-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady is ready once the cart finished loading and storage answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, load LoadState, storage Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Marketplace-Env", cfg.App.Env)

		if load != nil && !load.Loaded() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnavailable, "cart is still loading"))
			return
		}

		if storage != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyPingTimeout)
			defer cancel()
			if err := storage.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage unreachable").
					WithDetails(map[string]any{"backend": cfg.Storage.Backend}))
				return
			}
		}

		body := map[string]string{"status": "ready", "backend": cfg.Storage.Backend}
		if load != nil {
			if err := load.LoadErr(); err != nil {
				body["load_error"] = err.Error()
			}
		}
		responses.WriteSuccess(w, body)
	}
}
