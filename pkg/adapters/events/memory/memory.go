package memory

import (
	"context"
	"sync"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/cloudmesh/orchestrator/pkg/ports"
)

// subscriber ties a handler to the context it was registered under so
// it can be dropped once that context ends
type subscriber struct {
	ctx     context.Context
	handler ports.EventHandler
}

// InMemoryEventBus implements EventBus by fanning events out to
// registered handlers in-process
type InMemoryEventBus struct {
	subscribers map[string][]subscriber
	mu          sync.RWMutex
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string][]subscriber),
	}
}

// Publish delivers an event to all live subscribers of a topic.
// Subscribers whose registration context has ended are pruned here, so
// short-lived observers never accumulate.
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.Lock()
	registered := e.subscribers[topic]
	live := make([]subscriber, 0, len(registered))
	for _, sub := range registered {
		if sub.ctx.Err() == nil {
			live = append(live, sub)
		}
	}
	e.subscribers[topic] = live
	e.mu.Unlock()

	// Handlers run asynchronously; a slow observer never blocks the
	// publishing request path.
	for _, sub := range live {
		go func(h ports.EventHandler) {
			_ = h(ctx, event)
		}(sub.handler)
	}

	return nil
}

// Subscribe registers a handler for a topic. The handler stays
// registered until the given context is done.
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscribers[topic] = append(e.subscribers[topic], subscriber{ctx: ctx, handler: handler})
	return nil
}

// Close clears all subscriptions
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscribers = make(map[string][]subscriber)
	return nil
}
