package cart

import "context"

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Write tracks the persistence of one committed mutation. Callers may drop
// it; the write happens regardless. A nil *Write stands for "nothing to
// persist" and behaves as an already finished, successful write.
type Write struct {
	snapshot Snapshot
	done     chan struct{}
	err      error
}

func newWrite(snap Snapshot) *Write {
	return &Write{snapshot: snap, done: make(chan struct{})}
}

// Snapshot is the state this write persists.
func (w *Write) Snapshot() Snapshot {
	if w == nil {
		return Snapshot{}
	}
	return w.snapshot
}

// Done is closed once the write finished, successfully or not.
func (w *Write) Done() <-chan struct{} {
	if w == nil {
		return closedCh
	}
	return w.done
}

// Err reports the write result. It is nil until Done is closed.
func (w *Write) Err() error {
	if w == nil {
		return nil
	}
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

// Wait blocks until the write finished or ctx ends.
func (w *Write) Wait(ctx context.Context) error {
	if w == nil {
		return nil
	}
	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Write) finish(err error) {
	w.err = err
	close(w.done)
}
