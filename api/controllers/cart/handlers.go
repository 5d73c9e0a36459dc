package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	cartdto "github.com/angelmondragon/marketplace-cart/api/controllers/cart/dto"
	"github.com/angelmondragon/marketplace-cart/api/responses"
	"github.com/angelmondragon/marketplace-cart/api/validators"
	cartsvc "github.com/angelmondragon/marketplace-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
)

const maxProductIDLen = 128

// CartFetch returns the current cart snapshot.
func CartFetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := cartsvc.FromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCart(c, c.Products()))
	}
}

// CartAddProduct adds a product, or bumps its quantity when already present.
func CartAddProduct(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := cartsvc.FromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wait, err := waitRequested(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartdto.AddProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithItemID(logg.WithOperation(r.Context(), "add"), payload.ID)
		if err := awaitReadableCart(ctx, c); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		write, err := c.AddToCart(ctx, toProduct(payload))
		writeMutationResult(ctx, logg, w, c, write, err, wait)
	}
}

// CartIncrement raises the quantity of the product in the path.
func CartIncrement(logg *logger.Logger) http.HandlerFunc {
	return quantityHandler(logg, "increment", cartsvc.Cart.Increment)
}

// CartDecrement lowers the quantity of the product in the path, removing it at zero.
func CartDecrement(logg *logger.Logger) http.HandlerFunc {
	return quantityHandler(logg, "decrement", cartsvc.Cart.Decrement)
}

type quantityOp func(c cartsvc.Cart, ctx context.Context, id string) (*cartsvc.Write, error)

func quantityHandler(logg *logger.Logger, op string, apply quantityOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := cartsvc.FromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wait, err := waitRequested(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithItemID(logg.WithOperation(r.Context(), op), id)
		if err := awaitReadableCart(ctx, c); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		write, err := apply(c, ctx, id)
		writeMutationResult(ctx, logg, w, c, write, err, wait)
	}
}

// productIDParam returns the path id exactly as it was added. chi matches on
// the raw path when the request carries escapes the default encoding would
// not produce (such as %2F), so the value is unescaped only in that case.
func productIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "productId")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(id)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "product id is not a valid path segment").
				WithDetails(map[string]any{"field": "productId"})
		}
		id = unescaped
	}
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
			WithDetails(map[string]any{"field": "productId"})
	}
	if utf8.RuneCountInString(id) > maxProductIDLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product id must be at most %d characters", maxProductIDLen)).
			WithDetails(map[string]any{"field": "productId"})
	}
	return id, nil
}

type loadGate interface {
	Ready() <-chan struct{}
	LoadErr() error
}

// awaitReadableCart refuses mutations while the persisted cart is
// unreadable, so the next write cannot replace it with a near-empty cart.
func awaitReadableCart(ctx context.Context, c cartsvc.Cart) error {
	gate, ok := c.(loadGate)
	if !ok {
		return nil
	}
	select {
	case <-gate.Ready():
	case <-ctx.Done():
		return mapMutationError(ctx.Err())
	}
	if err := gate.LoadErr(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisted cart could not be read")
	}
	return nil
}

func waitRequested(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("wait")
	if raw == "" {
		return false, nil
	}
	wait, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "wait must be a boolean").WithDetails(map[string]any{"field": "wait"})
	}
	return wait, nil
}

func writeMutationResult(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, c cartsvc.Cart, write *cartsvc.Write, err error, wait bool) {
	if err != nil {
		responses.WriteError(ctx, logg, w, mapMutationError(err))
		return
	}

	snap := c.Products()
	if write != nil {
		snap = write.Snapshot()
	}
	body := newCart(c, snap)

	if wait {
		if err := write.Wait(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart change not persisted").
				WithDetails(map[string]any{"version": snap.Version()}))
			return
		}
		persisted := true
		body.Persisted = &persisted
	}

	responses.WriteSuccess(w, body)
}

func mapMutationError(err error) error {
	switch {
	case errors.Is(err, cartsvc.ErrClosed):
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "cart store is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "cart is still loading")
	default:
		return err
	}
}
