package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cloudmesh/orchestrator/internal/application/dispatch"
	"github.com/cloudmesh/orchestrator/internal/application/subscription"
	eventsmem "github.com/cloudmesh/orchestrator/pkg/adapters/events/memory"
	"github.com/cloudmesh/orchestrator/pkg/adapters/storage/memory"
	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/cloudmesh/orchestrator/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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

// stubStrategy records its invocations and finalizes the job the way a
// real strategy does.
type stubStrategy struct {
	name   string
	jobs   ports.JobStore
	result *domain.MatchResult
	err    error

	calls []*domain.OrchestrationForm
}

func (s *stubStrategy) Run(ctx context.Context, jobID string, form *domain.OrchestrationForm) (*domain.MatchResult, error) {
	s.calls = append(s.calls, form)
	if s.err != nil {
		_ = s.jobs.UpdateStatus(ctx, jobID, domain.JobStatusError, s.err.Error())
		return nil, s.err
	}
	_ = s.jobs.UpdateStatus(ctx, jobID, domain.JobStatusDone, "")
	return s.result, nil
}

type serviceFixture struct {
	service    *Service
	jobs       *memory.JobStore
	subs       *memory.SubscriptionStore
	queue      *dispatch.Queue
	local      *stubStrategy
	intercloud *stubStrategy
}

func newServiceFixture() *serviceFixture {
	jobs := memory.NewJobStore()
	subs := memory.NewSubscriptionStore()
	metrics := nopMetrics{}
	queue := dispatch.NewQueue(64, metrics)
	bus := eventsmem.NewInMemoryEventBus()
	logger := zap.NewNop()

	local := &stubStrategy{
		name: "local",
		jobs: jobs,
		result: &domain.MatchResult{
			Matches:  []domain.ProviderMatch{{ProviderSystem: "provider-local", ServiceDefinition: "temperature"}},
			Warnings: []string{"local warning"},
		},
	}
	intercloud := &stubStrategy{
		name: "intercloud",
		jobs: jobs,
		result: &domain.MatchResult{
			Matches: []domain.ProviderMatch{{ProviderSystem: "provider-remote", ServiceDefinition: "temperature"}},
		},
	}

	registry := subscription.NewRegistry(subs, metrics, logger)
	coordinator := subscription.NewCoordinator(subs, jobs, queue, bus, metrics, logger)

	service := NewService(jobs, registry, coordinator, queue, bus,
		local, intercloud, NewValidator(), metrics, logger)

	return &serviceFixture{
		service:    service,
		jobs:       jobs,
		subs:       subs,
		queue:      queue,
		local:      local,
		intercloud: intercloud,
	}
}

func TestPullRunsLocalStrategy(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	result, err := f.service.Pull(ctx, "test", "system-1", &PullRequest{
		ServiceDefinition: "temperature",
	})
	require.NoError(t, err)
	require.Len(t, f.local.calls, 1)
	assert.Empty(t, f.intercloud.calls)

	// Pull always targets the caller itself.
	form := f.local.calls[0]
	assert.Equal(t, "system-1", form.RequesterSystem)
	assert.Equal(t, "system-1", form.TargetSystem)

	// The strategy response comes back verbatim, warnings included.
	assert.Equal(t, []string{"local warning"}, result.Warnings)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "provider-local", result.Matches[0].ProviderSystem)

	// One PULL job was persisted and driven to a terminal status.
	page, err := f.jobs.Query(ctx, domain.JobFilter{Types: []domain.JobType{domain.JobTypePull}}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, domain.JobStatusDone, page.Items[0].Status)
}

func TestPullSelectsInterCloudStrategy(t *testing.T) {
	f := newServiceFixture()

	result, err := f.service.Pull(context.Background(), "test", "system-1", &PullRequest{
		ServiceDefinition: "temperature",
		InterCloudOnly:    true,
	})
	require.NoError(t, err)
	assert.Empty(t, f.local.calls)
	require.Len(t, f.intercloud.calls, 1)
	assert.Equal(t, "provider-remote", result.Matches[0].ProviderSystem)
}

func TestPullStrategyFailure(t *testing.T) {
	f := newServiceFixture()
	f.local.err = errors.New("registry unreachable")

	_, err := f.service.Pull(context.Background(), "test", "system-1", &PullRequest{
		ServiceDefinition: "temperature",
	})
	require.Error(t, err)

	// The strategy moved the job to ERROR before returning.
	page, err := f.jobs.Query(context.Background(), domain.JobFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, domain.JobStatusError, page.Items[0].Status)
}

func TestPullValidation(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, err := f.service.Pull(ctx, "test", "", &PullRequest{ServiceDefinition: "temperature"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.service.Pull(ctx, "test", "system-1", &PullRequest{})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.service.Pull(ctx, "test", "system-1", nil)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestPushSubscribeCreates(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	result, err := f.service.PushSubscribe(ctx, "test", "system-1", &SubscribeRequest{
		ServiceDefinition: "temperature",
		NotifyProtocol:    "http",
	}, false)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.NotEmpty(t, result.SubscriptionID)
	assert.Empty(t, result.JobID)

	subs, err := f.subs.Get(ctx, []string{result.SubscriptionID})
	require.NoError(t, err)
	require.Len(t, subs, 1)

	// Target defaults to the owner and the snapshot round-trips.
	assert.Equal(t, "system-1", subs[0].TargetSystem)
	var form domain.OrchestrationForm
	require.NoError(t, json.Unmarshal([]byte(subs[0].RequirementSnapshot), &form))
	assert.Equal(t, "temperature", form.ServiceDefinition)
	assert.Equal(t, "system-1", form.RequesterSystem)
}

func TestPushSubscribeUpdatesInPlace(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	first, err := f.service.PushSubscribe(ctx, "test", "system-1", &SubscribeRequest{
		ServiceDefinition: "temperature",
		NotifyProtocol:    "http",
	}, false)
	require.NoError(t, err)

	second, err := f.service.PushSubscribe(ctx, "test", "system-1", &SubscribeRequest{
		ServiceDefinition:     "temperature",
		InterfaceRequirements: []string{"HTTPS-SECURE-JSON"},
		NotifyProtocol:        "mqtt",
	}, false)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.SubscriptionID, second.SubscriptionID)

	// The stored row carries the re-validated snapshot and protocol.
	subs, err := f.subs.Get(ctx, []string{first.SubscriptionID})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "mqtt", subs[0].NotifyProtocol)

	var form domain.OrchestrationForm
	require.NoError(t, json.Unmarshal([]byte(subs[0].RequirementSnapshot), &form))
	assert.Equal(t, []string{"HTTPS-SECURE-JSON"}, form.InterfaceRequirements)
}

func TestPushSubscribeTriggerNow(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	result, err := f.service.PushSubscribe(ctx, "test", "system-1", &SubscribeRequest{
		ServiceDefinition: "temperature",
		NotifyProtocol:    "http",
	}, true)
	require.NoError(t, err)
	require.NotEmpty(t, result.JobID)
	assert.Equal(t, 1, f.queue.Depth())

	// A repeated trigger while the job is in flight reuses it.
	again, err := f.service.PushSubscribe(ctx, "test", "system-1", &SubscribeRequest{
		ServiceDefinition: "temperature",
		NotifyProtocol:    "http",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, result.JobID, again.JobID)
	assert.Equal(t, 1, f.queue.Depth())
}

func TestPushSubscribeExplicitOwner(t *testing.T) {
	f := newServiceFixture()

	result, err := f.service.PushSubscribe(context.Background(), "test", "gateway", &SubscribeRequest{
		OwnerSystem:       "system-1",
		ServiceDefinition: "temperature",
		NotifyProtocol:    "http",
	}, false)
	require.NoError(t, err)

	subs, err := f.subs.Get(context.Background(), []string{result.SubscriptionID})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "system-1", subs[0].OwnerSystem)
}

func TestPushUnsubscribe(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	created, err := f.service.PushSubscribe(ctx, "test", "system-1", &SubscribeRequest{
		ServiceDefinition: "temperature",
		NotifyProtocol:    "http",
	}, false)
	require.NoError(t, err)

	// Unknown id: false without error.
	removed, err := f.service.PushUnsubscribe(ctx, "test", "system-1", "no-such-id")
	require.NoError(t, err)
	assert.False(t, removed)

	// Foreign ownership is forbidden.
	_, err = f.service.PushUnsubscribe(ctx, "test", "system-2", created.SubscriptionID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	// The owner removes it.
	removed, err = f.service.PushUnsubscribe(ctx, "test", "system-1", created.SubscriptionID)
	require.NoError(t, err)
	assert.True(t, removed)

	subs, err := f.subs.Get(ctx, []string{created.SubscriptionID})
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestQueryPushSubscriptions(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	for _, service := range []string{"temperature", "humidity"} {
		_, err := f.service.PushSubscribe(ctx, "test", "system-1", &SubscribeRequest{
			ServiceDefinition: service,
			NotifyProtocol:    "http",
		}, false)
		require.NoError(t, err)
	}

	page, err := f.service.QueryPushSubscriptions(ctx, "test", domain.SubscriptionFilter{
		ServiceDefinitions: []string{"temperature"},
	}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "temperature", page.Items[0].ServiceDefinition)
}
