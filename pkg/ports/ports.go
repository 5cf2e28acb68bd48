package ports

import (
	"context"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
)

// JobStore persists orchestration jobs. Create assigns ids and the
// creation timestamp; batch operations are atomic (all rows or none).
type JobStore interface {
	Create(ctx context.Context, jobs []domain.Job) ([]domain.Job, error)
	Get(ctx context.Context, ids []string) ([]domain.Job, error)
	Query(ctx context.Context, filter domain.JobFilter, page domain.PageRequest) (domain.Page[domain.Job], error)
	// UpdateStatus mutates the only mutable job field. Message may carry
	// a terminal error description.
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, message string) error
	DeleteInBatch(ctx context.Context, ids []string) error
}

// LockStore persists lease locks.
type LockStore interface {
	GetByServiceInstanceIDs(ctx context.Context, serviceInstanceIDs []string) ([]domain.Lock, error)
	Query(ctx context.Context, filter domain.LockFilter, page domain.PageRequest) (domain.Page[domain.Lock], error)
	// Replace atomically deletes the given lock ids and inserts the new
	// locks in one critical section, re-checking that none of the new
	// locks' service instances carries a live lease other than those
	// being deleted. Returns the conflicting service instance id via a
	// Conflict error when the check fails.
	Replace(ctx context.Context, deleteIDs []string, create []domain.Lock) ([]domain.Lock, error)
	DeleteInBatch(ctx context.Context, ids []string) error
}

// SubscriptionStore persists push subscriptions.
type SubscriptionStore interface {
	Create(ctx context.Context, subs []domain.Subscription) ([]domain.Subscription, error)
	Get(ctx context.Context, ids []string) ([]domain.Subscription, error)
	Query(ctx context.Context, filter domain.SubscriptionFilter, page domain.PageRequest) (domain.Page[domain.Subscription], error)
	// FindByTriple returns the subscription for the uniqueness triple, or
	// nil when none exists.
	FindByTriple(ctx context.Context, owner, target, serviceDefinition string) (*domain.Subscription, error)
	// Update overwrites the mutable fields of an existing subscription.
	// The identity triple and creation timestamp never change.
	Update(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)
	DeleteInBatch(ctx context.Context, ids []string) error
}

// DispatchQueue is the hand-off between request handlers and the async
// push workers. Producers must enqueue a job id only after the job row
// is durably persisted; the queue is a wake-up signal, not a source of
// truth.
type DispatchQueue interface {
	// Enqueue queues a job id without blocking. Returns an error when
	// the queue is full or closed.
	Enqueue(ctx context.Context, jobID string) error
	// Dequeue blocks until a job id is available or the context is done.
	Dequeue(ctx context.Context) (string, error)
	// Depth returns the current number of queued job ids.
	Depth() int
	Close()
}

// EventHandler processes a single job lifecycle event
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes job lifecycle events to observers
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// Strategy runs provider matching for one job and owns moving the job
// to a terminal status, on success and on its own failure alike.
type Strategy interface {
	Run(ctx context.Context, jobID string, form *domain.OrchestrationForm) (*domain.MatchResult, error)
}

// ServiceRegistry is the external matching/discovery collaborator the
// strategies delegate to. The matching algorithm itself is out of scope.
type ServiceRegistry interface {
	Match(ctx context.Context, form *domain.OrchestrationForm) (*domain.MatchResult, error)
	MatchInterCloud(ctx context.Context, form *domain.OrchestrationForm) (*domain.MatchResult, error)
}

// MetricsCollector records orchestration metrics
type MetricsCollector interface {
	RecordJobCreated(jobType string)
	RecordJobCompleted(status string, duration time.Duration)
	RecordLockAcquired(count int)
	RecordLockConflict()
	RecordLockReleased(count int)
	RecordSubscriptionCreated()
	RecordSubscriptionDeleted()
	RecordPushTrigger(created, existing int)
	SetQueueDepth(depth int)
	RecordWorkerPoolStatus(idle, busy, stopped int)
}
