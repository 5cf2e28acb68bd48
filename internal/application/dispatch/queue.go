package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudmesh/orchestrator/pkg/ports"
)

// ErrQueueFull is returned when the dispatch queue cannot accept another
// job id without blocking.
var ErrQueueFull = errors.New("dispatch queue full")

// ErrQueueClosed is returned when the queue has been shut down.
var ErrQueueClosed = errors.New("dispatch queue closed")

// Queue is a bounded channel-backed dispatch queue. Append-only from
// producers, pop-only from the worker side.
type Queue struct {
	ch      chan string
	metrics ports.MetricsCollector

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a dispatch queue with the given capacity
func NewQueue(capacity int, metrics ports.MetricsCollector) *Queue {
	return &Queue{
		ch:      make(chan string, capacity),
		metrics: metrics,
	}
}

// Enqueue queues a job id without blocking
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- jobID:
		q.metrics.SetQueueDepth(len(q.ch))
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until a job id is available, the queue is closed or the
// context is done
func (q *Queue) Dequeue(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case jobID, ok := <-q.ch:
		if !ok {
			return "", ErrQueueClosed
		}
		q.metrics.SetQueueDepth(len(q.ch))
		return jobID, nil
	}
}

// Depth returns the current number of queued job ids
func (q *Queue) Depth() int {
	return len(q.ch)
}

// Close stops accepting new job ids. Queued ids remain drainable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
