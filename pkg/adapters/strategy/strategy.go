package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/cloudmesh/orchestrator/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// base carries the collaborators shared by both strategies and the
// terminal-status bookkeeping they own.
type base struct {
	name   string
	jobs   ports.JobStore
	bus    ports.EventBus
	logger *zap.Logger
}

// finish moves the job to its terminal status and publishes the
// matching lifecycle event. Bookkeeping failures are logged, never
// surfaced: the matching outcome already stands. The run context may
// already be expired when the run itself timed out, so the terminal
// write must not inherit its cancellation.
func (b *base) finish(ctx context.Context, jobID string, result *domain.MatchResult, runErr error) {
	ctx = context.WithoutCancel(ctx)

	status := domain.JobStatusDone
	eventType := domain.EventTypeJobDone
	message := ""
	if runErr != nil {
		status = domain.JobStatusError
		eventType = domain.EventTypeJobError
		message = runErr.Error()
	} else {
		message = fmt.Sprintf("%d match(es)", len(result.Matches))
	}

	if err := b.jobs.UpdateStatus(ctx, jobID, status, message); err != nil {
		b.logger.Error("failed to finalize job status",
			zap.String("strategy", b.name),
			zap.String("job_id", jobID),
			zap.String("status", string(status)),
			zap.Error(err))
	}

	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		JobID:     jobID,
		Timestamp: time.Now(),
	}
	if err := b.bus.Publish(ctx, "job.events", event); err != nil {
		b.logger.Warn("failed to publish job event",
			zap.String("strategy", b.name),
			zap.String("job_id", jobID),
			zap.Error(err))
	}
}

// Local matches providers inside the local cloud
type Local struct {
	base
	registry ports.ServiceRegistry
}

// NewLocal creates the local orchestration strategy
func NewLocal(registry ports.ServiceRegistry, jobs ports.JobStore, bus ports.EventBus, logger *zap.Logger) *Local {
	return &Local{
		base:     base{name: "local", jobs: jobs, bus: bus, logger: logger},
		registry: registry,
	}
}

// Run performs local matching for one job
func (s *Local) Run(ctx context.Context, jobID string, form *domain.OrchestrationForm) (*domain.MatchResult, error) {
	result, err := s.registry.Match(ctx, form)
	if err != nil {
		err = fmt.Errorf("local matching failed: %w", err)
		s.finish(ctx, jobID, nil, err)
		return nil, err
	}

	s.finish(ctx, jobID, result, nil)
	return result, nil
}

// InterCloud matches providers across neighbor clouds
type InterCloud struct {
	base
	registry ports.ServiceRegistry
}

// NewInterCloud creates the inter-cloud orchestration strategy
func NewInterCloud(registry ports.ServiceRegistry, jobs ports.JobStore, bus ports.EventBus, logger *zap.Logger) *InterCloud {
	return &InterCloud{
		base:     base{name: "intercloud", jobs: jobs, bus: bus, logger: logger},
		registry: registry,
	}
}

// Run performs inter-cloud matching for one job
func (s *InterCloud) Run(ctx context.Context, jobID string, form *domain.OrchestrationForm) (*domain.MatchResult, error) {
	result, err := s.registry.MatchInterCloud(ctx, form)
	if err != nil {
		err = fmt.Errorf("intercloud matching failed: %w", err)
		s.finish(ctx, jobID, nil, err)
		return nil, err
	}

	s.finish(ctx, jobID, result, nil)
	return result, nil
}
