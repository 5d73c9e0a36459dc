package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/marketplace-cart/pkg/kv"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
	"github.com/angelmondragon/marketplace-cart/pkg/metrics"
)

// StorageKey is the key the cart is persisted under.
const StorageKey = "@GoMarketplace:products"

// ErrClosed is returned by mutators once Close has been called.
var ErrClosed = errors.New("cart store closed")

const (
	opAdd       = "add"
	opIncrement = "increment"
	opDecrement = "decrement"
)

// Cart is the consumer-facing contract of the store.
type Cart interface {
	Products() Snapshot
	AddToCart(ctx context.Context, p Product) (*Write, error)
	Increment(ctx context.Context, id string) (*Write, error)
	Decrement(ctx context.Context, id string) (*Write, error)
}

// Params wires the store's collaborators.
type Params struct {
	KV      kv.Store
	Key     string
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
	// WriteTimeout bounds each Set call; zero means no bound.
	WriteTimeout time.Duration
}

// Store owns the cart state. Mutations are serialized and published as
// new snapshots; persistence runs on a single worker in commit order.
type Store struct {
	kv           kv.Store
	key          string
	logg         *logger.Logger
	metrics      *metrics.CartMetrics
	writeTimeout time.Duration

	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	subs    map[*subscriber]struct{}
	closed  bool

	ready   chan struct{}
	loaded  atomic.Bool
	loadErr error

	queue     *writeQueue
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

var _ Cart = (*Store)(nil)

// Open creates the store and starts loading the persisted cart in the
// background. The cart reads as empty until the load finishes. ctx only
// contributes log fields; cancelling it does not stop the store.
func Open(ctx context.Context, p Params) (*Store, error) {
	if p.KV == nil {
		return nil, fmt.Errorf("kv store required")
	}
	key := p.Key
	if key == "" {
		key = StorageKey
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	s := &Store{
		kv:           p.KV,
		key:          key,
		logg:         logg,
		metrics:      p.Metrics,
		writeTimeout: p.WriteTimeout,
		subs:         make(map[*subscriber]struct{}),
		ready:        make(chan struct{}),
		queue:        newWriteQueue(),
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
	}
	s.current.Store(&Snapshot{})

	go s.run(logg.WithField(context.WithoutCancel(ctx), "storage_key", key))
	return s, nil
}

// Products returns the current snapshot. It never waits on storage.
func (s *Store) Products() Snapshot {
	return *s.current.Load()
}

// AddToCart appends p with quantity 1. When the id is already in the cart
// it behaves exactly like Increment and the supplied fields are ignored.
func (s *Store) AddToCart(ctx context.Context, p Product) (*Write, error) {
	return s.commit(ctx, opAdd, p.ID, func(items []LineItem) ([]LineItem, bool) {
		return addItem(items, p)
	})
}

// Increment raises the quantity of id by one. Unknown ids are a no-op and
// return a nil *Write.
func (s *Store) Increment(ctx context.Context, id string) (*Write, error) {
	return s.commit(ctx, opIncrement, id, func(items []LineItem) ([]LineItem, bool) {
		return incrementItem(items, id)
	})
}

// Decrement lowers the quantity of id by one and removes the line when it
// reaches zero. Unknown ids are a no-op and return a nil *Write.
func (s *Store) Decrement(ctx context.Context, id string) (*Write, error) {
	return s.commit(ctx, opDecrement, id, func(items []LineItem) ([]LineItem, bool) {
		return decrementItem(items, id)
	})
}

// Ready is closed once the initial load finished, whatever its outcome.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Loaded reports whether the initial load finished.
func (s *Store) Loaded() bool {
	return s.loaded.Load()
}

// LoadErr is the storage error hit by the initial load, if any. Missing
// and malformed payloads are not errors.
func (s *Store) LoadErr() error {
	select {
	case <-s.ready:
		return s.loadErr
	default:
		return nil
	}
}

// Pending returns the number of writes not yet picked up by the worker.
func (s *Store) Pending() int {
	return s.queue.pending()
}

// Subscribe returns a channel that receives the current snapshot and then
// every newer one. Intermediate versions may be skipped for slow readers.
// The channel is closed by cancel or by Close.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	sub := newSubscriber()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	s.subs[sub] = struct{}{}
	sub.offer(*s.current.Load())
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// Flush waits until every write enqueued so far has finished and returns
// the error of the most recent one.
func (s *Store) Flush(ctx context.Context) error {
	return s.queue.lastPushed().Wait(ctx)
}

// Close rejects further mutations, lets the worker drain the queue and
// closes subscriber channels. It returns the error of the last write or
// ctx's error when the drain did not finish in time.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.closing)
		for sub := range s.subs {
			sub.close()
			delete(s.subs, sub)
		}
		s.mu.Unlock()
		s.queue.close()
	})

	select {
	case <-s.done:
		return s.queue.lastPushed().Err()
	case <-ctx.Done():
		return fmt.Errorf("draining cart writes: %w", ctx.Err())
	}
}

type mutation func(items []LineItem) ([]LineItem, bool)

func (s *Store) commit(ctx context.Context, op, id string, fn mutation) (*Write, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	cur := s.current.Load()
	next, changed := fn(cur.items)
	if !changed {
		s.logg.Debug(s.logg.WithItemID(s.logg.WithOperation(ctx, op), id), "cart mutation ignored: item not in cart")
		return nil, nil
	}

	snap := s.publishLocked(next)
	w := newWrite(snap)
	s.queue.push(w)
	s.metrics.IncMutation(op)
	return w, nil
}

func (s *Store) awaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	default:
	}
	select {
	case <-s.ready:
		return nil
	case <-s.closing:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("waiting for cart load: %w", ctx.Err())
	}
}

// publishLocked installs items as the next version. Caller holds s.mu.
func (s *Store) publishLocked(items []LineItem) Snapshot {
	prev := s.current.Load()
	snap := Snapshot{items: items, version: prev.version + 1}
	s.current.Store(&snap)
	for sub := range s.subs {
		sub.offer(snap)
	}
	s.metrics.SetItems(len(items))
	return snap
}

func (s *Store) run(ctx context.Context) {
	defer close(s.done)

	s.load(ctx)
	for {
		w, ok := s.queue.pop()
		if !ok {
			return
		}
		s.persist(ctx, w)
	}
}

func (s *Store) load(ctx context.Context) {
	items, err := s.read(ctx)

	s.mu.Lock()
	s.loadErr = err
	s.publishLocked(items)
	s.loaded.Store(true)
	close(s.ready)
	s.mu.Unlock()
}

func (s *Store) read(ctx context.Context) ([]LineItem, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		s.metrics.ObserveLoad(metrics.LoadEmpty)
		s.logg.Info(ctx, "no persisted cart, starting empty")
		return nil, nil
	}
	if err != nil {
		s.metrics.ObserveLoad(metrics.LoadError)
		s.logg.Error(ctx, "failed to read persisted cart", err)
		return nil, err
	}

	items, dropped, err := decode(raw)
	if err != nil {
		s.metrics.ObserveLoad(metrics.LoadMalformed)
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "persisted cart is malformed, starting empty")
		return nil, nil
	}
	if dropped > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "dropped", dropped), "dropped invalid persisted cart items")
	}

	s.metrics.ObserveLoad(metrics.LoadOK)
	s.logg.Info(s.logg.WithField(ctx, "items", len(items)), "persisted cart loaded")
	return items, nil
}

func (s *Store) persist(ctx context.Context, w *Write) {
	ctx = s.logg.WithField(ctx, "version", w.snapshot.version)

	payload, err := Encode(w.snapshot.items)
	if err == nil {
		err = s.set(ctx, payload)
	}
	if err != nil {
		s.logg.Error(ctx, "cart persistence write failed", err)
	}
	w.finish(err)
}

func (s *Store) set(ctx context.Context, payload string) error {
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}
	start := time.Now()
	err := s.kv.Set(ctx, s.key, payload)
	s.metrics.ObserveWrite(time.Since(start), err)
	return err
}
