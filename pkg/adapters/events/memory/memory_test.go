package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/cloudmesh/orchestrator/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus()
	ctx := context.Background()

	received := make(chan domain.Event, 1)
	handler := func(ctx context.Context, event domain.Event) error {
		received <- event
		return nil
	}
	require.NoError(t, bus.Subscribe(ctx, "job.events", handler))

	require.NoError(t, bus.Publish(ctx, "job.events", domain.Event{
		ID:    "event-1",
		Type:  domain.EventTypeJobCreated,
		JobID: "job-1",
	}))

	select {
	case event := <-received:
		assert.Equal(t, "job-1", event.JobID)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestPublishPrunesDoneSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus()

	received := make(chan domain.Event, 4)
	handler := func(ctx context.Context, event domain.Event) error {
		received <- event
		return nil
	}

	subCtx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Subscribe(subCtx, "job.events", handler))

	require.NoError(t, bus.Publish(context.Background(), "job.events", domain.Event{ID: "event-1"}))
	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("event was not delivered before cancel")
	}

	// After the registration context ends the handler is dropped and its
	// slot reclaimed, so disconnected observers do not pile up.
	cancel()
	require.NoError(t, bus.Publish(context.Background(), "job.events", domain.Event{ID: "event-2"}))

	select {
	case event := <-received:
		t.Fatalf("unexpected delivery after cancel: %s", event.ID)
	case <-time.After(50 * time.Millisecond):
	}

	bus.mu.RLock()
	remaining := len(bus.subscribers["job.events"])
	bus.mu.RUnlock()
	assert.Equal(t, 0, remaining)
}

func TestCloseClearsSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus()
	ctx := context.Background()

	var handler ports.EventHandler = func(ctx context.Context, event domain.Event) error { return nil }
	require.NoError(t, bus.Subscribe(ctx, "job.events", handler))
	require.NoError(t, bus.Close())

	bus.mu.RLock()
	remaining := len(bus.subscribers["job.events"])
	bus.mu.RUnlock()
	assert.Equal(t, 0, remaining)
}
