// Package memory implements the event bus in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/valgraph/valgraph/pkg/domain"
	"github.com/valgraph/valgraph/pkg/ports"
)

// EventBus delivers events synchronously to in-process subscribers.
// Synchronous delivery keeps event order aligned with run order, which
// is what tests and the single-run CLI want.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]ports.EventHandler
	closed      bool
}

// NewEventBus creates an in-process event bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]ports.EventHandler)}
}

// Publish delivers the event to every subscriber of the topic. Handler
// errors do not stop delivery to the remaining subscribers.
func (e *EventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	handlers := make([]ports.EventHandler, len(e.subscribers[topic]))
	copy(handlers, e.subscribers[topic])
	e.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for a topic.
func (e *EventBus) Subscribe(_ context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers[topic] = append(e.subscribers[topic], handler)
	return nil
}

// Close drops all subscribers.
func (e *EventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = make(map[string][]ports.EventHandler)
	e.closed = true
	return nil
}
