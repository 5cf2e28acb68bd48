package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/google/uuid"
)

// SubscriptionStore implements ports.SubscriptionStore using an in-memory map
type SubscriptionStore struct {
	subs map[string]domain.Subscription
	mu   sync.RWMutex
}

// NewSubscriptionStore creates a new in-memory subscription store
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		subs: make(map[string]domain.Subscription),
	}
}

// Create persists a batch of subscriptions, assigning ids. The batch is
// rejected as a whole when any entry collides with a stored row on the
// (owner, target, serviceDefinition) triple.
func (s *SubscriptionStore) Create(ctx context.Context, subs []domain.Subscription) ([]domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.subs))
	for _, sub := range s.subs {
		existing[sub.TripleKey()] = true
	}
	for _, sub := range subs {
		if existing[sub.TripleKey()] {
			return nil, &domain.Error{
				Sentinel: domain.ErrConflict,
				Message:  "Duplicate subscription: " + sub.TripleKey(),
			}
		}
	}

	now := time.Now()
	created := make([]domain.Subscription, 0, len(subs))
	for _, sub := range subs {
		sub.ID = uuid.New().String()
		sub.CreatedAt = now
		s.subs[sub.ID] = sub
		created = append(created, sub)
	}

	return created, nil
}

// Get returns the subscriptions with the given ids; unknown ids are skipped
func (s *SubscriptionStore) Get(ctx context.Context, ids []string) ([]domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := make([]domain.Subscription, 0, len(ids))
	for _, id := range ids {
		if sub, ok := s.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

// Query returns a filtered, paginated view of the stored subscriptions
func (s *SubscriptionStore) Query(ctx context.Context, filter domain.SubscriptionFilter, page domain.PageRequest) (domain.Page[domain.Subscription], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Subscription, 0)
	for _, sub := range s.subs {
		if len(filter.IDs) > 0 && !containsString(filter.IDs, sub.ID) {
			continue
		}
		if len(filter.OwnerSystems) > 0 && !containsString(filter.OwnerSystems, sub.OwnerSystem) {
			continue
		}
		if len(filter.TargetSystems) > 0 && !containsString(filter.TargetSystems, sub.TargetSystem) {
			continue
		}
		if len(filter.ServiceDefinitions) > 0 && !containsString(filter.ServiceDefinitions, sub.ServiceDefinition) {
			continue
		}
		matched = append(matched, sub)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return domain.NewPage(matched, page), nil
}

// FindByTriple returns the subscription for the uniqueness triple, or nil
func (s *SubscriptionStore) FindByTriple(ctx context.Context, owner, target, serviceDefinition string) (*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.OwnerSystem == owner && sub.TargetSystem == target && sub.ServiceDefinition == serviceDefinition {
			found := sub
			return &found, nil
		}
	}
	return nil, nil
}

// Update overwrites the mutable fields of an existing subscription
func (s *SubscriptionStore) Update(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.subs[sub.ID]
	if !ok {
		return domain.Subscription{}, fmt.Errorf("subscription not found: %s", sub.ID)
	}

	stored.RequirementSnapshot = sub.RequirementSnapshot
	stored.NotifyProtocol = sub.NotifyProtocol
	stored.NotifyProperties = sub.NotifyProperties
	s.subs[stored.ID] = stored

	return stored, nil
}

// DeleteInBatch removes the given subscriptions; unknown ids are ignored
func (s *SubscriptionStore) DeleteInBatch(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.subs, id)
	}
	return nil
}
