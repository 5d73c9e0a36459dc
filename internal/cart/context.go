package cart

import (
	"context"

	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
)

type ctxKey struct{}

// ErrOutsideScope is returned when no cart was installed on the context.
var ErrOutsideScope = pkgerrors.New(pkgerrors.CodeConfiguration, "cart store used outside of provider scope")

// WithStore installs c as the cart for everything derived from ctx.
func WithStore(ctx context.Context, c Cart) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the cart installed by WithStore.
func FromContext(ctx context.Context) (Cart, error) {
	if ctx == nil {
		return nil, ErrOutsideScope
	}
	c, ok := ctx.Value(ctxKey{}).(Cart)
	if !ok || c == nil {
		return nil, ErrOutsideScope
	}
	return c, nil
}

// MustFromContext is FromContext for wiring code that cannot continue
// without a cart. It panics with ErrOutsideScope.
func MustFromContext(ctx context.Context) Cart {
	c, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return c
}
