package cart

import "sync"

// subscriber holds at most one undelivered snapshot; a newer one replaces
// it so a slow reader only ever misses intermediate versions.
type subscriber struct {
	ch   chan Snapshot
	once sync.Once
}

func newSubscriber() *subscriber {
	return &subscriber{ch: make(chan Snapshot, 1)}
}

// offer must only be called by a single sender at a time.
func (s *subscriber) offer(snap Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}
