package events

import (
	"context"
	"sync"

	"github.com/spec-kit/exchange-desk/internal/domain"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType domain.EventType, handler EventHandler)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[domain.EventType][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[domain.EventType][]EventHandler),
	}
}

// Publish synchronously invokes handlers for the given event. Handler errors
// do not stop the remaining handlers and never fail the transition that
// produced the event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType domain.EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
