package cart

import "sync"

// writeQueue is an unbounded FIFO of pending writes with a single consumer.
// push never blocks, so a stalled backend cannot stall mutators.
type writeQueue struct {
	mu     sync.Mutex
	items  []*Write
	last   *Write
	closed bool
	wake   chan struct{}
}

func newWriteQueue() *writeQueue {
	return &writeQueue{wake: make(chan struct{}, 1)}
}

func (q *writeQueue) push(w *Write) {
	q.mu.Lock()
	q.items = append(q.items, w)
	q.last = w
	q.mu.Unlock()
	q.signal()
}

// pop blocks until a write is available. It reports false once the queue
// is closed and drained.
func (q *writeQueue) pop() (*Write, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			w := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return w, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()
		<-q.wake
	}
}

func (q *writeQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// lastPushed returns the most recently enqueued write, or nil.
func (q *writeQueue) lastPushed() *Write {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}

func (q *writeQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *writeQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
