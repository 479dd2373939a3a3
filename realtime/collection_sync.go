// Package realtime bridges a live remote query to in-memory state for one
// user-scoped collection. Each emitted snapshot replaces the in-memory list
// wholesale; nothing is patched incrementally, so a reordered or batched
// remote change can never leave the list diverged from the store.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/meatvault/stock-service/errbus"
)

// Snapshot is one emission from a live query: either the full ordered
// document set or a subscription error.
type Snapshot[T any] struct {
	Docs []T
	Err  error
}

// Source is the subscribe-to-query primitive of the remote store. The
// returned channel delivers snapshots in emission order and is closed when
// the subscription ends (context cancellation or a fatal error).
type Source[T any] interface {
	Subscribe(ctx context.Context, userID string) (<-chan Snapshot[T], error)
}

// CollectionSync owns one live subscription and the in-memory list it feeds.
// The list is mutated only by the sync's own goroutine; readers get copies.
type CollectionSync[T any] struct {
	source Source[T]
	bus    *errbus.Bus
	path   string
	log    *zap.Logger

	mu        sync.RWMutex
	items     []T
	loading   bool
	version   uint64
	listeners map[int]chan struct{}
	nextID    int

	cancel context.CancelFunc
	done   chan struct{}
}

func NewCollectionSync[T any](source Source[T], bus *errbus.Bus, path string, log *zap.Logger) *CollectionSync[T] {
	return &CollectionSync[T]{
		source:    source,
		bus:       bus,
		path:      path,
		log:       log,
		loading:   true,
		listeners: make(map[int]chan struct{}),
	}
}

// Start opens the subscription for the given user. An empty userID means
// signed out: any active subscription is torn down and the list resets to
// empty with loading false. Calling Start with a new user tears down the
// previous subscription first, so a stale callback can never leak another
// user's data into the list.
func (s *CollectionSync[T]) Start(ctx context.Context, userID string) error {
	s.Stop()

	if userID == "" {
		return nil
	}

	s.mu.Lock()
	s.items = nil
	s.loading = true
	s.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	ch, err := s.source.Subscribe(subCtx, userID)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.bus.Publish(errbus.WriteFailure{Path: s.path, Operation: errbus.OpList, Err: err})
		return err
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ch)
	return nil
}

// Stop tears down the subscription and clears the list. Safe to call when
// nothing is running.
func (s *CollectionSync[T]) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
		s.done = nil
	}

	s.mu.Lock()
	s.items = nil
	s.loading = false
	s.mu.Unlock()
}

func (s *CollectionSync[T]) run(ch <-chan Snapshot[T]) {
	defer close(s.done)

	for snap := range ch {
		if snap.Err != nil {
			s.mu.Lock()
			s.loading = false
			s.mu.Unlock()
			s.log.Warn("live query failed",
				zap.String("path", s.path), zap.Error(snap.Err))
			s.bus.Publish(errbus.WriteFailure{Path: s.path, Operation: errbus.OpList, Err: snap.Err})
			s.notify()
			continue
		}

		s.mu.Lock()
		s.items = snap.Docs
		s.loading = false
		s.version++
		s.mu.Unlock()
		s.notify()
	}
}

// Items returns a copy of the current snapshot and its version. The version
// increments on every replacement, which lets memoized projections detect a
// new snapshot without comparing contents.
func (s *CollectionSync[T]) Items() ([]T, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out, s.version
}

// Loading reports whether the first snapshot (or first error) is still
// pending. It flips to false once and stays false through later refreshes,
// so reloads are silent rather than spinner-flashing.
func (s *CollectionSync[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Updates registers a change notification channel. The channel has a buffer
// of one and notifications coalesce; a listener that falls behind sees a
// single pending tick, then reads the latest snapshot via Items.
func (s *CollectionSync[T]) Updates() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *CollectionSync[T]) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
