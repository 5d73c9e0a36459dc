package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/marketplace-cart/api/controllers"
	cartcontrollers "github.com/angelmondragon/marketplace-cart/api/controllers/cart"
	"github.com/angelmondragon/marketplace-cart/api/middleware"
	"github.com/angelmondragon/marketplace-cart/internal/cart"
	"github.com/angelmondragon/marketplace-cart/pkg/config"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
)

const eventsHeartbeat = 15 * time.Second

// NewRouter wires the cart API. metricsHandler may be nil to skip /metrics.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store *cart.Store,
	storage controllers.Pinger,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, store, storage))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.CartScope(store))

		r.Get("/", cartcontrollers.CartFetch(logg))
		r.Get("/events", cartcontrollers.CartEvents(store, logg, eventsHeartbeat))
		r.Post("/products", cartcontrollers.CartAddProduct(logg))
		r.Post("/products/{productId}/increment", cartcontrollers.CartIncrement(logg))
		r.Post("/products/{productId}/decrement", cartcontrollers.CartDecrement(logg))
	})

	return r
}
