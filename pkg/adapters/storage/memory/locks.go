package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/google/uuid"
)

// LockStore implements ports.LockStore using an in-memory map.
// A single mutex serializes Replace, so two concurrent acquires can
// never both observe "no live lock" for the same service instance.
type LockStore struct {
	locks map[string]domain.Lock
	mu    sync.RWMutex
}

// NewLockStore creates a new in-memory lock store
func NewLockStore() *LockStore {
	return &LockStore{
		locks: make(map[string]domain.Lock),
	}
}

// GetByServiceInstanceIDs returns all lock rows for the given service instances
func (s *LockStore) GetByServiceInstanceIDs(ctx context.Context, serviceInstanceIDs []string) ([]domain.Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locks := make([]domain.Lock, 0)
	for _, lock := range s.locks {
		if containsString(serviceInstanceIDs, lock.ServiceInstanceID) {
			locks = append(locks, lock)
		}
	}
	return locks, nil
}

// Query returns a filtered, paginated view of the stored locks
func (s *LockStore) Query(ctx context.Context, filter domain.LockFilter, page domain.PageRequest) (domain.Page[domain.Lock], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Lock, 0)
	for _, lock := range s.locks {
		if len(filter.IDs) > 0 && !containsString(filter.IDs, lock.ID) {
			continue
		}
		if len(filter.ServiceInstanceIDs) > 0 && !containsString(filter.ServiceInstanceIDs, lock.ServiceInstanceID) {
			continue
		}
		if filter.Owner != "" && lock.Owner != filter.Owner {
			continue
		}
		matched = append(matched, lock)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return domain.NewPage(matched, page), nil
}

// Replace atomically deletes the given lock ids and inserts the new
// locks. Inside the critical section it re-checks that no service
// instance of the new locks carries a live lease other than the ones
// being deleted; on conflict nothing is written.
func (s *LockStore) Replace(ctx context.Context, deleteIDs []string, create []domain.Lock) ([]domain.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	deleting := make(map[string]bool, len(deleteIDs))
	for _, id := range deleteIDs {
		deleting[id] = true
	}

	for _, candidate := range create {
		for _, existing := range s.locks {
			if existing.ServiceInstanceID != candidate.ServiceInstanceID || deleting[existing.ID] {
				continue
			}
			if existing.Active(now) {
				return nil, &domain.Error{
					Sentinel: domain.ErrConflict,
					Message:  "Already locked: " + candidate.ServiceInstanceID,
				}
			}
			// Expired leftovers for the same instance are swept with the
			// explicit delete set.
			deleting[existing.ID] = true
		}
	}

	for id := range deleting {
		delete(s.locks, id)
	}

	created := make([]domain.Lock, 0, len(create))
	for _, lock := range create {
		lock.ID = uuid.New().String()
		lock.CreatedAt = now
		s.locks[lock.ID] = lock
		created = append(created, lock)
	}

	return created, nil
}

// DeleteInBatch removes the given locks; unknown ids are ignored
func (s *LockStore) DeleteInBatch(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.locks, id)
	}
	return nil
}
