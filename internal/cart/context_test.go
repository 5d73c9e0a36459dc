package cart

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
	"github.com/angelmondragon/marketplace-cart/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextOutsideScope(t *testing.T) {
	c, err := FromContext(context.Background())
	assert.Nil(t, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutsideScope))
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeConfiguration, pkgerrors.As(err).Code())
	assert.Contains(t, err.Error(), "used outside of provider scope")

	//nolint:staticcheck // nil context is the point of the test
	_, err = FromContext(nil)
	assert.ErrorIs(t, err, ErrOutsideScope)
}

func TestWithStoreInstallsCart(t *testing.T) {
	s := openStore(t, kv.NewMemory())
	ctx := WithStore(context.Background(), s)

	got, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = MustFromContext(ctx).AddToCart(ctx, shirt)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Products().Len())
}

func TestMustFromContextPanicsOutsideScope(t *testing.T) {
	assert.PanicsWithError(t, ErrOutsideScope.Error(), func() {
		MustFromContext(context.Background())
	})
}
