package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMetrics struct{}

func (nopMetrics) RecordJobCreated(string)                  {}
func (nopMetrics) RecordJobCompleted(string, time.Duration) {}
func (nopMetrics) RecordLockAcquired(int)                   {}
func (nopMetrics) RecordLockConflict()                      {}
func (nopMetrics) RecordLockReleased(int)                   {}
func (nopMetrics) RecordSubscriptionCreated()               {}
func (nopMetrics) RecordSubscriptionDeleted()               {}
func (nopMetrics) RecordPushTrigger(int, int)               {}
func (nopMetrics) SetQueueDepth(int)                        {}
func (nopMetrics) RecordWorkerPoolStatus(int, int, int)     {}

func TestQueueEnqueueDequeue(t *testing.T) {
	q := NewQueue(4, nopMetrics{})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))
	require.NoError(t, q.Enqueue(ctx, "job-2"))
	assert.Equal(t, 2, q.Depth())

	jobID, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	jobID, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-2", jobID)
	assert.Equal(t, 0, q.Depth())
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(1, nopMetrics{})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))
	err := q.Enqueue(ctx, "job-2")
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(4, nopMetrics{})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))
	q.Close()

	assert.ErrorIs(t, q.Enqueue(ctx, "job-2"), ErrQueueClosed)

	// Queued ids remain drainable after close.
	jobID, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueDequeueRespectsContext(t *testing.T) {
	q := NewQueue(4, nopMetrics{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueDoubleCloseIsSafe(t *testing.T) {
	q := NewQueue(4, nopMetrics{})
	q.Close()
	q.Close()
}
