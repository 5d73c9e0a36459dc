package cart

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/marketplace-cart/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritesFollowCommitOrder(t *testing.T) {
	rec := newRecordingKV()
	rec.gate = make(chan struct{})
	s := openStore(t, rec)
	ctx := context.Background()

	var writes []*Write
	for i := 0; i < 20; i++ {
		w, err := s.AddToCart(ctx, Product{ID: "p1"})
		require.NoError(t, err)
		writes = append(writes, w)
		if i%3 == 0 {
			w, err = s.AddToCart(ctx, Product{ID: "p2"})
			require.NoError(t, err)
			writes = append(writes, w)
		}
	}
	w, err := s.Decrement(ctx, "p2")
	require.NoError(t, err)
	writes = append(writes, w)

	close(rec.gate)
	require.NoError(t, s.Flush(ctx))

	recorded := rec.recorded()
	require.Len(t, recorded, len(writes))
	for i, w := range writes {
		want, err := Encode(w.Snapshot().Items())
		require.NoError(t, err)
		assert.Equal(t, want, recorded[i], "write %d must carry the state its mutation committed", i)
		assert.NoError(t, w.Err())
	}

	final, err := Encode(s.Products().Items())
	require.NoError(t, err)
	stored, err := rec.Memory.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Equal(t, final, stored, "last write wins")
}

func TestWriteFailureLeavesMemoryIntact(t *testing.T) {
	rec := newRecordingKV()
	s := openStore(t, rec)
	ctx := context.Background()

	w, err := s.AddToCart(ctx, shirt)
	require.NoError(t, err)
	require.NoError(t, w.Wait(ctx))

	rec.failWrites(errDisk)
	w, err = s.Increment(ctx, "p1")
	require.NoError(t, err, "mutators never report write failures")
	assert.ErrorIs(t, w.Wait(ctx), errDisk)
	assert.ErrorIs(t, s.Flush(ctx), errDisk)

	got, _ := s.Products().Find("p1")
	assert.Equal(t, 2, got.Quantity)
	stored, err := rec.Memory.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Contains(t, stored, `"quantity":1`, "failed write leaves the old copy")

	rec.failWrites(nil)
	w, err = s.Increment(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, w.Wait(ctx))
	stored, err = rec.Memory.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Contains(t, stored, `"quantity":3`, "next successful write corrects storage")
}

func TestHangingStorageDoesNotBlockMutatorsOrReads(t *testing.T) {
	rec := newRecordingKV()
	rec.gate = make(chan struct{})
	s := openStore(t, rec)
	t.Cleanup(func() { close(rec.gate) })
	ctx := context.Background()

	done := make(chan struct{})
	var last *Write
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			w, err := s.AddToCart(ctx, shirt)
			if err != nil {
				return
			}
			last = w
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutators blocked on a hanging write")
	}

	got, _ := s.Products().Find("p1")
	assert.Equal(t, 10, got.Quantity)

	select {
	case <-last.Done():
		t.Fatal("write reported done while storage hangs")
	default:
	}

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, last.Wait(waitCtx), context.DeadlineExceeded)
	assert.ErrorIs(t, s.Flush(waitCtx), context.DeadlineExceeded)
	assert.Greater(t, s.Pending(), 0)
}

func TestWriteTimeoutBoundsEachWrite(t *testing.T) {
	rec := newRecordingKV()
	rec.gate = make(chan struct{})
	defer close(rec.gate)
	s := openStore(t, rec, func(p *Params) { p.WriteTimeout = 20 * time.Millisecond })
	ctx := context.Background()

	w, err := s.AddToCart(ctx, shirt)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	assert.ErrorIs(t, w.Wait(waitCtx), context.DeadlineExceeded)
	assert.Equal(t, 1, s.Products().Len())
}

func TestMutationsWaitForInitialLoad(t *testing.T) {
	rec := newRecordingKV()
	require.NoError(t, rec.Memory.Set(context.Background(), StorageKey,
		`[{"id":"saved","title":"Saved","image_url":"","price":1,"quantity":2}]`))
	rec.getGate = make(chan struct{})

	s, err := Open(context.Background(), Params{KV: rec})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	assert.False(t, s.Loaded())
	assert.Equal(t, 0, s.Products().Len(), "empty while loading")
	assert.NoError(t, s.LoadErr())

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.AddToCart(shortCtx, shirt)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	result := make(chan error, 1)
	go func() {
		_, err := s.AddToCart(context.Background(), shirt)
		result <- err
	}()

	close(rec.getGate)
	require.NoError(t, <-result)

	assert.True(t, s.Loaded())
	assert.Equal(t, []string{"saved", "p1"}, ids(s.Products()), "a late load never discards mutations")
}

func TestCloseRejectsMutationsAndDrains(t *testing.T) {
	rec := newRecordingKV()
	s := openStore(t, rec)
	ctx := context.Background()

	_, err := s.AddToCart(ctx, shirt)
	require.NoError(t, err)
	_, err = s.Increment(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, s.Close(ctx))
	assert.Len(t, rec.recorded(), 2, "close drains pending writes")

	_, err = s.AddToCart(ctx, shirt)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Increment(ctx, "p1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close(ctx), "close is idempotent")

	got, _ := s.Products().Find("p1")
	assert.Equal(t, 2, got.Quantity, "reads keep working after close")
}

func TestCloseWhileLoadingUnblocksMutators(t *testing.T) {
	rec := newRecordingKV()
	rec.getGate = make(chan struct{})
	s, err := Open(context.Background(), Params{KV: rec})
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := s.AddToCart(context.Background(), shirt)
		result <- err
	}()

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Close(shortCtx), context.DeadlineExceeded)
	assert.ErrorIs(t, <-result, ErrClosed)

	close(rec.getGate)
	require.NoError(t, s.Close(context.Background()))
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	s := openStore(t, kv.NewMemory())
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	initial := <-ch
	assert.Equal(t, s.Products().Version(), initial.Version())

	_, err := s.AddToCart(ctx, shirt)
	require.NoError(t, err)
	next := <-ch
	assert.Equal(t, 1, next.Len())
	assert.Greater(t, next.Version(), initial.Version())

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestSlowSubscriberGetsLatestSnapshot(t *testing.T) {
	s := openStore(t, kv.NewMemory())
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	defer cancel()
	<-ch

	for i := 0; i < 5; i++ {
		_, err := s.AddToCart(ctx, shirt)
		require.NoError(t, err)
	}

	latest := <-ch
	got, _ := latest.Find("p1")
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, s.Products().Version(), latest.Version())
}

func TestCloseEndsSubscriptions(t *testing.T) {
	s := openStore(t, kv.NewMemory())

	ch, cancel := s.Subscribe()
	<-ch
	require.NoError(t, s.Close(context.Background()))

	_, open := <-ch
	assert.False(t, open)
	cancel()

	late, lateCancel := s.Subscribe()
	_, open = <-late
	assert.False(t, open)
	lateCancel()
}
