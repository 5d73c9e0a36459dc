package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-cart/internal/cart"
	"github.com/angelmondragon/marketplace-cart/pkg/kv"
)

type brokenKV struct{ *kv.Memory }

func (brokenKV) Get(context.Context, string) (string, error) {
	return "", errors.New("disk unreadable")
}

// memoryOpener reopens a store on the same memory kv for every command,
// the way separate cartctl invocations share one database.
func memoryOpener(store kv.Store, released *int) opener {
	return func(ctx context.Context) (*session, error) {
		s, err := cart.Open(ctx, cart.Params{KV: store})
		if err != nil {
			return nil, err
		}
		return &session{store: s, release: func() error {
			*released++
			return nil
		}}, nil
	}
}

func run(t *testing.T, open opener, args ...string) (cartView, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	var view cartView
	if err == nil && out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	}
	return view, errOut.String(), err
}

func TestCommandsPersistAcrossInvocations(t *testing.T) {
	mem := kv.NewMemory()
	var released int
	open := memoryOpener(mem, &released)

	view, _, err := run(t, open, "add", "--id", "p1", "--title", "Shirt", "--image-url", "u", "--price", "29.9")
	require.NoError(t, err)
	require.Len(t, view.Products, 1)
	assert.Equal(t, cart.LineItem{ID: "p1", Title: "Shirt", ImageURL: "u", Price: 29.9, Quantity: 1}, view.Products[0])

	view, _, err = run(t, open, "inc", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, view.Products[0].Quantity)

	view, _, err = run(t, open, "list")
	require.NoError(t, err)
	assert.Equal(t, 2, view.Products[0].Quantity, "state survives a new process")

	_, _, err = run(t, open, "dec", "p1")
	require.NoError(t, err)
	view, _, err = run(t, open, "dec", "p1")
	require.NoError(t, err)
	assert.Empty(t, view.Products)

	assert.Equal(t, 5, released)
}

func TestQuantityCommandReportsMissingItem(t *testing.T) {
	var released int
	view, stderr, err := run(t, memoryOpener(kv.NewMemory(), &released), "inc", "ghost")
	require.NoError(t, err)
	assert.Empty(t, view.Products)
	assert.Contains(t, stderr, "ghost is not in the cart")
}

func TestAddValidatesFlags(t *testing.T) {
	var released int
	open := memoryOpener(kv.NewMemory(), &released)

	_, _, err := run(t, open, "add", "--title", "Shirt")
	assert.Error(t, err)

	_, _, err = run(t, open, "add", "--id", "p1", "--title", "Shirt", "--price", "-2")
	assert.ErrorContains(t, err, "--price")

	_, _, err = run(t, open, "inc")
	assert.Error(t, err)
}

func TestCommandsRefuseUnreadableCart(t *testing.T) {
	var released int
	_, _, err := run(t, memoryOpener(brokenKV{kv.NewMemory()}, &released), "add", "--id", "p1", "--title", "Shirt")
	assert.ErrorContains(t, err, "disk unreadable")
	assert.Equal(t, 1, released)
}

func TestWatchPrintsSnapshotsUntilCancelled(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(context.Background(), cart.StorageKey, `[{"id":"p1","title":"Shirt","image_url":"","price":1,"quantity":3}]`))
	var released int

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	cmd := newRootCmd(memoryOpener(mem, &released))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"watch"})
	require.NoError(t, cmd.ExecuteContext(ctx))

	line := strings.SplitN(out.String(), "\n", 2)[0]
	var view cartView
	require.NoError(t, json.Unmarshal([]byte(line), &view))
	require.Len(t, view.Products, 1)
	assert.Equal(t, 3, view.Products[0].Quantity)
}
