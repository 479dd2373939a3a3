// Package errbus carries permission failures from store writes to a single
// process-lifetime diagnostic listener, decoupled from the call site that
// triggered the write. The bus is constructed once in main and passed by
// reference to every store; it is not a package-level singleton.
package errbus

import (
	"fmt"
	"sync"
)

// Operation is the kind of store access that failed.
type Operation string

const (
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// WriteFailure describes a rejected store access. For writes, Payload holds
// the document that was rejected so the listener can log it for diagnosis.
type WriteFailure struct {
	Path      string    `json:"resourcePath"`
	Operation Operation `json:"operation"`
	Payload   any       `json:"payload,omitempty"`
	Err       error     `json:"-"`
}

func (f WriteFailure) Error() string {
	return fmt.Sprintf("store access denied: %s on %s", f.Operation, f.Path)
}

func (f WriteFailure) Unwrap() error { return f.Err }

// Bus is a minimal publish/subscribe channel for WriteFailure events.
// Events are ephemeral: there is no retention and no replay to late
// subscribers.
type Bus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(WriteFailure)
}

func New() *Bus {
	return &Bus{listeners: make(map[int]func(WriteFailure))}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (b *Bus) Subscribe(fn func(WriteFailure)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Publish delivers the failure to every current listener. Delivery is
// synchronous so a test can observe the event as soon as the publishing call
// returns.
func (b *Bus) Publish(f WriteFailure) {
	b.mu.Lock()
	fns := make([]func(WriteFailure), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(f)
	}
}
