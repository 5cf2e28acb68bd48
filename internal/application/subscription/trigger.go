package subscription

import (
	"context"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/cloudmesh/orchestrator/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// resolveLimit bounds how many subscriptions one bulk trigger resolves
const resolveLimit = 10000

// TriggerSelector narrows which subscriptions a bulk trigger addresses.
// Explicit SubscriptionIDs take precedence and carry no ownership
// filter; otherwise the requester's own subscriptions are resolved,
// optionally narrowed by TargetSystems.
type TriggerSelector struct {
	TargetSystems   []string
	SubscriptionIDs []string
}

// Coordinator resolves subscriptions into push jobs with idempotent
// dispatch: a subscription with an in-flight job never gets a second one.
type Coordinator struct {
	subs    ports.SubscriptionStore
	jobs    ports.JobStore
	queue   ports.DispatchQueue
	bus     ports.EventBus
	metrics ports.MetricsCollector
	logger  *zap.Logger
}

// NewCoordinator creates a new push-trigger coordinator
func NewCoordinator(
	subs ports.SubscriptionStore,
	jobs ports.JobStore,
	queue ports.DispatchQueue,
	bus ports.EventBus,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		subs:    subs,
		jobs:    jobs,
		queue:   queue,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
	}
}

// PushTrigger creates push jobs for every resolved subscription that has
// no in-flight job, persists them as one batch and wakes the dispatch
// workers. The result unions newly created jobs with the pre-existing
// in-flight jobs, so callers always learn the current job for every
// resolved subscription.
func (c *Coordinator) PushTrigger(ctx context.Context, origin, requesterSystem string, selector TriggerSelector) ([]domain.Job, error) {
	if requesterSystem == "" {
		return nil, domain.Validation(origin, "requester system is required")
	}

	resolved, err := c.resolve(ctx, origin, requesterSystem, selector)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return []domain.Job{}, nil
	}

	subscriptionIDs := make([]string, 0, len(resolved))
	for _, sub := range resolved {
		subscriptionIDs = append(subscriptionIDs, sub.ID)
	}

	inFlightPage, err := c.jobs.Query(ctx, domain.JobFilter{
		Types:           []domain.JobType{domain.JobTypePush},
		Statuses:        domain.InFlightStatuses,
		SubscriptionIDs: subscriptionIDs,
	}, domain.PageRequest{Size: resolveLimit})
	if err != nil {
		return nil, domain.Storage(origin, "job.query", err)
	}

	inFlight := make(map[string]domain.Job, len(inFlightPage.Items))
	for _, job := range inFlightPage.Items {
		inFlight[job.SubscriptionID] = job
	}

	toCreate := make([]domain.Job, 0, len(resolved))
	for _, sub := range resolved {
		if _, busy := inFlight[sub.ID]; busy {
			continue
		}
		toCreate = append(toCreate, domain.Job{
			Type:              domain.JobTypePush,
			RequesterSystem:   sub.OwnerSystem,
			TargetSystem:      sub.TargetSystem,
			ServiceDefinition: sub.ServiceDefinition,
			SubscriptionID:    sub.ID,
			Status:            domain.JobStatusPending,
		})
	}

	var created []domain.Job
	if len(toCreate) > 0 {
		// Atomic batch: a persistence failure aborts the whole call and
		// nothing reaches the queue.
		created, err = c.jobs.Create(ctx, toCreate)
		if err != nil {
			return nil, domain.Storage(origin, "job.create", err)
		}

		for _, job := range created {
			c.metrics.RecordJobCreated(string(job.Type))
			c.enqueue(ctx, job)
		}
	}

	c.metrics.RecordPushTrigger(len(created), len(inFlight))
	c.logger.Info("push trigger processed",
		zap.String("requester", requesterSystem),
		zap.Int("resolved", len(resolved)),
		zap.Int("created", len(created)),
		zap.Int("in_flight", len(inFlight)),
		zap.String("origin", origin))

	// Union preserves resolution order: the current job for every
	// resolved subscription, created or pre-existing.
	result := make([]domain.Job, 0, len(resolved))
	createdBySub := make(map[string]domain.Job, len(created))
	for _, job := range created {
		createdBySub[job.SubscriptionID] = job
	}
	for _, sub := range resolved {
		if job, ok := createdBySub[sub.ID]; ok {
			result = append(result, job)
		} else if job, ok := inFlight[sub.ID]; ok {
			result = append(result, job)
		}
	}

	return result, nil
}

// resolve selects the subscriptions addressed by the trigger
func (c *Coordinator) resolve(ctx context.Context, origin, requesterSystem string, selector TriggerSelector) ([]domain.Subscription, error) {
	if len(selector.SubscriptionIDs) > 0 {
		// Addressed by id: no ownership filter, unknown ids are skipped.
		subs, err := c.subs.Get(ctx, selector.SubscriptionIDs)
		if err != nil {
			return nil, domain.Storage(origin, "subscription.get", err)
		}
		return subs, nil
	}

	filter := domain.SubscriptionFilter{
		OwnerSystems:  []string{requesterSystem},
		TargetSystems: selector.TargetSystems,
	}
	page, err := c.subs.Query(ctx, filter, domain.PageRequest{Size: resolveLimit})
	if err != nil {
		return nil, domain.Storage(origin, "subscription.query", err)
	}
	return page.Items, nil
}

// enqueue wakes the dispatch workers for a committed job. The queue is
// best-effort; on failure the job stays PENDING and is recovered by the
// startup re-scan.
func (c *Coordinator) enqueue(ctx context.Context, job domain.Job) {
	if err := c.queue.Enqueue(ctx, job.ID); err != nil {
		c.logger.Warn("failed to enqueue job",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}

	event := domain.Event{
		ID:             uuid.New().String(),
		Type:           domain.EventTypeJobCreated,
		JobID:          job.ID,
		SubscriptionID: job.SubscriptionID,
		Timestamp:      time.Now(),
	}
	if err := c.bus.Publish(ctx, "job.events", event); err != nil {
		c.logger.Warn("failed to publish job created event",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}
