// Package events provides the in-process publish/subscribe bus used by the
// notification dispatcher to invoke hook handlers. Per the framework's
// design, the bus is an instance field of the owning Framework, not a
// process-global registry — each framework handle gets its own subscribers.
package events

import (
	"context"
	"fmt"
	"sync"
)

// Handler is a subscriber callback. Returning an error signals the
// dispatcher to treat the triggering notification as failed.
type Handler func(ctx context.Context, payload Payload) error

// Payload is delivered to hook-driven subscribers.
type Payload struct {
	Event          string
	ProjectionName string
	ProjectionVer  int
	NotificationID int64
	Attempts       int
}

// Bus is an in-process, single-process pub/sub registry. It is safe for
// concurrent Subscribe calls, but Subscribe must not be called concurrently
// with Emit — the registry is append-only during normal operation (spec
// §5, Shared-resource policy).
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers handler for event, appended after any existing
// handlers for that event.
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Emit awaits every handler registered for payload.Event, in registration
// order. The first handler error aborts the remaining handlers and is
// returned to the caller (the dispatcher, which treats it as a failed
// notification).
func (b *Bus) Emit(ctx context.Context, payload Payload) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[payload.Event]...)
	b.mu.RUnlock()

	for i, h := range handlers {
		if err := h(ctx, payload); err != nil {
			return fmt.Errorf("handler %d for event %q: %w", i, payload.Event, err)
		}
	}
	return nil
}

// HandlerCount returns the number of handlers registered for event, mostly
// useful for tests asserting subscription side effects.
func (b *Bus) HandlerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}
