package locks

import (
	"context"
	"errors"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/cloudmesh/orchestrator/pkg/ports"
	"go.uber.org/zap"
)

// Manager coordinates lease lock acquisition and release
type Manager struct {
	store   ports.LockStore
	metrics ports.MetricsCollector
	logger  *zap.Logger
}

// NewManager creates a new lock manager
func NewManager(store ports.LockStore, metrics ports.MetricsCollector, logger *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Acquire grants every requested lease or none. An active lock on any
// requested service instance fails the whole batch with a conflict
// naming the first offending instance; expired locks are stolen.
func (m *Manager) Acquire(ctx context.Context, origin string, candidates []domain.LockCandidate) ([]domain.Lock, error) {
	if len(candidates) == 0 {
		return nil, domain.Validation(origin, "lock batch must not be empty")
	}

	instanceIDs := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.ServiceInstanceID == "" {
			return nil, domain.Validation(origin, "service instance id is required")
		}
		if c.Owner == "" {
			return nil, domain.Validation(origin, "lock owner is required")
		}
		if seen[c.ServiceInstanceID] {
			return nil, domain.Validation(origin, "duplicate service instance in batch: %s", c.ServiceInstanceID)
		}
		seen[c.ServiceInstanceID] = true
		instanceIDs = append(instanceIDs, c.ServiceInstanceID)
	}

	existing, err := m.store.GetByServiceInstanceIDs(ctx, instanceIDs)
	if err != nil {
		return nil, domain.Storage(origin, "lock.fetch", err)
	}

	now := time.Now()
	byInstance := make(map[string][]domain.Lock, len(existing))
	for _, lock := range existing {
		byInstance[lock.ServiceInstanceID] = append(byInstance[lock.ServiceInstanceID], lock)
	}

	expiredIDs := make([]string, 0)
	for _, c := range candidates {
		for _, lock := range byInstance[c.ServiceInstanceID] {
			if lock.Active(now) {
				m.metrics.RecordLockConflict()
				return nil, domain.Conflict(origin, "Already locked: %s", c.ServiceInstanceID)
			}
			expiredIDs = append(expiredIDs, lock.ID)
		}
	}

	create := make([]domain.Lock, 0, len(candidates))
	for _, c := range candidates {
		create = append(create, domain.Lock{
			ServiceInstanceID: c.ServiceInstanceID,
			Owner:             c.Owner,
			ExpiresAt:         c.ExpiresAt,
			JobID:             c.JobID,
			Temporary:         c.Temporary,
		})
	}

	// Replace re-checks liveness inside the store's critical section: a
	// concurrent acquire that won the race surfaces here as a conflict.
	granted, err := m.store.Replace(ctx, expiredIDs, create)
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) && errors.Is(err, domain.ErrConflict) {
			m.metrics.RecordLockConflict()
			return nil, domain.Conflict(origin, "%s", derr.Message)
		}
		return nil, domain.Storage(origin, "lock.replace", err)
	}

	m.metrics.RecordLockAcquired(len(granted))
	m.logger.Info("locks acquired",
		zap.Int("count", len(granted)),
		zap.Int("stolen_expired", len(expiredIDs)),
		zap.String("origin", origin))

	return granted, nil
}

// Query returns a filtered, paginated view of the stored locks
func (m *Manager) Query(ctx context.Context, origin string, filter domain.LockFilter, page domain.PageRequest) (domain.Page[domain.Lock], error) {
	result, err := m.store.Query(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Lock]{}, domain.Storage(origin, "lock.query", err)
	}
	return result, nil
}

// Release deletes the subset of locks on the given service instances
// that belong to owner and are not temporary. Everything else is a
// silent no-op: callers cannot distinguish "nothing was locked" from
// "not yours".
func (m *Manager) Release(ctx context.Context, origin, owner string, serviceInstanceIDs []string) error {
	if owner == "" {
		return domain.Validation(origin, "lock owner is required")
	}
	if len(serviceInstanceIDs) == 0 {
		return nil
	}

	locks, err := m.store.GetByServiceInstanceIDs(ctx, serviceInstanceIDs)
	if err != nil {
		return domain.Storage(origin, "lock.fetch", err)
	}

	deleteIDs := make([]string, 0, len(locks))
	for _, lock := range locks {
		if lock.Temporary || lock.Owner != owner {
			continue
		}
		deleteIDs = append(deleteIDs, lock.ID)
	}

	if len(deleteIDs) == 0 {
		return nil
	}

	if err := m.store.DeleteInBatch(ctx, deleteIDs); err != nil {
		return domain.Storage(origin, "lock.delete", err)
	}

	m.metrics.RecordLockReleased(len(deleteIDs))
	m.logger.Info("locks released",
		zap.String("owner", owner),
		zap.Int("count", len(deleteIDs)),
		zap.String("origin", origin))

	return nil
}
