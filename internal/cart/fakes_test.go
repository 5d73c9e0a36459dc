package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/angelmondragon/marketplace-cart/pkg/kv"
)

// recordingKV wraps a memory store and remembers every Set payload.
type recordingKV struct {
	*kv.Memory

	mu     sync.Mutex
	writes []string
	getErr error
	setErr error
	// gate, when set, blocks every Set until it is closed or ctx ends.
	gate chan struct{}
	// getGate blocks Get the same way.
	getGate chan struct{}
}

func newRecordingKV() *recordingKV {
	return &recordingKV{Memory: kv.NewMemory()}
}

func (r *recordingKV) Get(ctx context.Context, key string) (string, error) {
	if r.getGate != nil {
		select {
		case <-r.getGate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if r.getErr != nil {
		return "", r.getErr
	}
	return r.Memory.Get(ctx, key)
}

func (r *recordingKV) Set(ctx context.Context, key, value string) error {
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	r.writes = append(r.writes, value)
	err := r.setErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Memory.Set(ctx, key, value)
}

func (r *recordingKV) failWrites(err error) {
	r.mu.Lock()
	r.setErr = err
	r.mu.Unlock()
}

func (r *recordingKV) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.writes))
	copy(out, r.writes)
	return out
}

var errDisk = errors.New("disk full")
