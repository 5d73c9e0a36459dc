package middleware

import (
	"net/http"

	"github.com/angelmondragon/marketplace-cart/internal/cart"
)

// CartScope installs c on every request context so handlers can reach it
// through cart.FromContext.
func CartScope(c cart.Cart) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(cart.WithStore(r.Context(), c)))
		})
	}
}
