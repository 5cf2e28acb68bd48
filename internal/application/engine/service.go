package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudmesh/orchestrator/internal/application/subscription"
	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/cloudmesh/orchestrator/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the orchestration façade. Pull requests run synchronously
// through a matching strategy; push subscriptions are registered here
// and processed later by the dispatch workers.
type Service struct {
	jobs        ports.JobStore
	registry    *subscription.Registry
	coordinator *subscription.Coordinator
	queue       ports.DispatchQueue
	bus         ports.EventBus
	local       ports.Strategy
	intercloud  ports.Strategy
	validator   *Validator
	metrics     ports.MetricsCollector
	logger      *zap.Logger
}

// NewService creates a new orchestration service
func NewService(
	jobs ports.JobStore,
	registry *subscription.Registry,
	coordinator *subscription.Coordinator,
	queue ports.DispatchQueue,
	bus ports.EventBus,
	local ports.Strategy,
	intercloud ports.Strategy,
	validator *Validator,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Service {
	return &Service{
		jobs:        jobs,
		registry:    registry,
		coordinator: coordinator,
		queue:       queue,
		bus:         bus,
		local:       local,
		intercloud:  intercloud,
		validator:   validator,
		metrics:     metrics,
		logger:      logger,
	}
}

// SubscribeResult reports the outcome of a single-subscription flow
type SubscribeResult struct {
	Created        bool   `json:"created"`
	SubscriptionID string `json:"subscription_id"`
	JobID          string `json:"job_id,omitempty"`
}

// Pull runs one synchronous orchestration: validate, persist one PULL
// job, dispatch to the strategy selected by the intercloud-only flag and
// return its response verbatim. The strategy owns moving the job to a
// terminal status, even on its own failure.
func (s *Service) Pull(ctx context.Context, origin, requesterSystem string, req *PullRequest) (*domain.MatchResult, error) {
	if requesterSystem == "" {
		return nil, domain.Validation(origin, "requester system is required")
	}

	form, err := s.validator.NormalizePull(origin, requesterSystem, req)
	if err != nil {
		return nil, err
	}

	created, err := s.jobs.Create(ctx, []domain.Job{{
		Type:              domain.JobTypePull,
		RequesterSystem:   form.RequesterSystem,
		TargetSystem:      form.TargetSystem,
		ServiceDefinition: form.ServiceDefinition,
		Status:            domain.JobStatusPending,
	}})
	if err != nil {
		return nil, domain.Storage(origin, "job.create", err)
	}
	job := created[0]
	s.metrics.RecordJobCreated(string(job.Type))
	s.publishEvent(ctx, domain.EventTypeJobCreated, job.ID, "")

	strategy := s.local
	if form.InterCloudOnly {
		strategy = s.intercloud
	}

	start := time.Now()
	result, err := strategy.Run(ctx, job.ID, form)
	if err != nil {
		s.metrics.RecordJobCompleted(string(domain.JobStatusError), time.Since(start))
		s.logger.Error("pull orchestration failed",
			zap.String("job_id", job.ID),
			zap.String("requester", requesterSystem),
			zap.Bool("intercloud", form.InterCloudOnly),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordJobCompleted(string(domain.JobStatusDone), time.Since(start))
	s.logger.Info("pull orchestration completed",
		zap.String("job_id", job.ID),
		zap.String("requester", requesterSystem),
		zap.Int("matches", len(result.Matches)),
		zap.Bool("intercloud", form.InterCloudOnly),
		zap.String("origin", origin))

	return result, nil
}

// PushSubscribe registers or updates the subscription for the resolved
// (owner, target, serviceDefinition) triple. A pre-existing subscription
// is updated in place and reported with Created=false. With triggerNow
// set, a push job is enqueued on the single-item fast path unless one is
// already in flight for the subscription.
func (s *Service) PushSubscribe(ctx context.Context, origin, requesterSystem string, req *SubscribeRequest, triggerNow bool) (*SubscribeResult, error) {
	if requesterSystem == "" {
		return nil, domain.Validation(origin, "requester system is required")
	}

	// An explicit owner field overrides the caller identity.
	owner := requesterSystem
	if req != nil && req.OwnerSystem != "" {
		owner = req.OwnerSystem
	}

	form, err := s.validator.NormalizeSubscribe(origin, owner, req)
	if err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(form)
	if err != nil {
		return nil, domain.Validation(origin, "failed to serialize requirement: %v", err)
	}

	existing, err := s.registry.GetExisting(ctx, origin, owner, form.TargetSystem, form.ServiceDefinition)
	if err != nil {
		return nil, err
	}

	result := &SubscribeResult{}
	if existing != nil {
		// Update in place: the re-validated snapshot and notification
		// fields replace the stored ones; no duplicate row is inserted.
		updated := *existing
		updated.RequirementSnapshot = string(snapshot)
		updated.NotifyProtocol = req.NotifyProtocol
		updated.NotifyProperties = req.NotifyProperties
		if _, err := s.registry.Update(ctx, origin, updated); err != nil {
			return nil, err
		}
		result.Created = false
		result.SubscriptionID = existing.ID
	} else {
		created, err := s.registry.Create(ctx, origin, []domain.Subscription{{
			OwnerSystem:         owner,
			TargetSystem:        form.TargetSystem,
			ServiceDefinition:   form.ServiceDefinition,
			RequirementSnapshot: string(snapshot),
			NotifyProtocol:      req.NotifyProtocol,
			NotifyProperties:    req.NotifyProperties,
		}})
		if err != nil {
			return nil, err
		}
		result.Created = true
		result.SubscriptionID = created[0].ID
	}

	if triggerNow {
		jobID, err := s.triggerSubscription(ctx, origin, result.SubscriptionID, owner, form)
		if err != nil {
			return nil, err
		}
		result.JobID = jobID
	}

	s.logger.Info("push subscription processed",
		zap.String("subscription_id", result.SubscriptionID),
		zap.String("owner", owner),
		zap.Bool("created", result.Created),
		zap.Bool("trigger_now", triggerNow),
		zap.String("origin", origin))

	return result, nil
}

// PushUnsubscribe removes the caller's subscription. Unknown ids return
// false without error; foreign ownership is a Forbidden failure.
func (s *Service) PushUnsubscribe(ctx context.Context, origin, requesterSystem, subscriptionID string) (bool, error) {
	if requesterSystem == "" {
		return false, domain.Validation(origin, "requester system is required")
	}

	subs, err := s.registry.Get(ctx, origin, []string{subscriptionID})
	if err != nil {
		return false, err
	}
	if len(subs) == 0 {
		return false, nil
	}

	sub := subs[0]
	if sub.OwnerSystem != requesterSystem {
		return false, domain.Forbidden(origin, "%s is not the owner of subscription %s", requesterSystem, subscriptionID)
	}

	if err := s.registry.Delete(ctx, origin, sub.ID); err != nil {
		return false, err
	}

	s.logger.Info("push subscription removed",
		zap.String("subscription_id", sub.ID),
		zap.String("owner", requesterSystem),
		zap.String("origin", origin))

	return true, nil
}

// QueryPushSubscriptions returns a filtered, paginated subscription view
func (s *Service) QueryPushSubscriptions(ctx context.Context, origin string, filter domain.SubscriptionFilter, page domain.PageRequest) (domain.Page[domain.Subscription], error) {
	return s.registry.Query(ctx, origin, filter, page)
}

// PushTrigger delegates bulk triggering to the coordinator
func (s *Service) PushTrigger(ctx context.Context, origin, requesterSystem string, selector subscription.TriggerSelector) ([]domain.Job, error) {
	return s.coordinator.PushTrigger(ctx, origin, requesterSystem, selector)
}

// triggerSubscription is the single-item fast path behind triggerNow: it
// persists one push job and pushes the id straight onto the dispatch
// queue, skipping creation when an in-flight job already exists.
func (s *Service) triggerSubscription(ctx context.Context, origin, subscriptionID, owner string, form *domain.OrchestrationForm) (string, error) {
	inFlight, err := s.jobs.Query(ctx, domain.JobFilter{
		Types:           []domain.JobType{domain.JobTypePush},
		Statuses:        domain.InFlightStatuses,
		SubscriptionIDs: []string{subscriptionID},
	}, domain.PageRequest{Size: 1})
	if err != nil {
		return "", domain.Storage(origin, "job.query", err)
	}
	if len(inFlight.Items) > 0 {
		return inFlight.Items[0].ID, nil
	}

	created, err := s.jobs.Create(ctx, []domain.Job{{
		Type:              domain.JobTypePush,
		RequesterSystem:   owner,
		TargetSystem:      form.TargetSystem,
		ServiceDefinition: form.ServiceDefinition,
		SubscriptionID:    subscriptionID,
		Status:            domain.JobStatusPending,
	}})
	if err != nil {
		return "", domain.Storage(origin, "job.create", err)
	}
	job := created[0]
	s.metrics.RecordJobCreated(string(job.Type))

	// Enqueue strictly after the row is committed.
	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		s.logger.Warn("failed to enqueue job",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
	s.publishEvent(ctx, domain.EventTypeJobCreated, job.ID, subscriptionID)

	return job.ID, nil
}

func (s *Service) publishEvent(ctx context.Context, eventType domain.EventType, jobID, subscriptionID string) {
	event := domain.Event{
		ID:             uuid.New().String(),
		Type:           eventType,
		JobID:          jobID,
		SubscriptionID: subscriptionID,
		Timestamp:      time.Now(),
	}
	if err := s.bus.Publish(ctx, "job.events", event); err != nil {
		s.logger.Warn("failed to publish job event",
			zap.String("job_id", jobID),
			zap.String("type", string(eventType)),
			zap.Error(err))
	}
}
