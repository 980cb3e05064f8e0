// Package pubsub carries typed notifications between the session core and its
// consumers. The bus is process-local; cross-tab consistency comes from
// re-validation on load, not from the bus.
package pubsub

import (
	"sync"

	"github.com/openshelf/openshelf"
)

// Handler receives a published event.
type Handler func(openshelf.Event)

// Bus is a synchronous publish/subscribe channel over the closed event set.
// Delivery hands the latest payload to every current subscriber; there is no
// buffering or replay for late subscribers.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[openshelf.EventType]map[uint64]Handler
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: map[openshelf.EventType]map[uint64]Handler{},
	}
}

// Subscribe registers a handler for one event type and returns its disposer.
// The disposer must be called on consumer teardown to avoid leaked handlers;
// calling it more than once is harmless.
func (b *Bus) Subscribe(t openshelf.EventType, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	if b.subs[t] == nil {
		b.subs[t] = map[uint64]Handler{}
	}
	b.subs[t][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[t], id)
		})
	}
}

// Publish delivers the event synchronously to every subscriber of its type.
func (b *Bus) Publish(e openshelf.Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Type()]))
	for _, fn := range b.subs[e.Type()] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	// handlers run outside the lock so they may subscribe or unsubscribe
	for _, fn := range handlers {
		fn(e)
	}
}

// Close drops all subscriptions. Further subscribes are no-ops and further
// publishes deliver to no one.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = map[openshelf.EventType]map[uint64]Handler{}
}
