package subscription

import (
	"context"
	"errors"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/cloudmesh/orchestrator/pkg/ports"
	"go.uber.org/zap"
)

// Registry manages durable push subscriptions
type Registry struct {
	store   ports.SubscriptionStore
	metrics ports.MetricsCollector
	logger  *zap.Logger
}

// NewRegistry creates a new subscription registry
func NewRegistry(store ports.SubscriptionStore, metrics ports.MetricsCollector, logger *zap.Logger) *Registry {
	return &Registry{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Create persists a batch of subscriptions. Two entries sharing the
// (owner, target, serviceDefinition) triple reject the whole batch.
func (r *Registry) Create(ctx context.Context, origin string, subs []domain.Subscription) ([]domain.Subscription, error) {
	if len(subs) == 0 {
		return nil, domain.Validation(origin, "subscription batch must not be empty")
	}

	seen := make(map[string]bool, len(subs))
	for _, sub := range subs {
		if sub.OwnerSystem == "" || sub.TargetSystem == "" || sub.ServiceDefinition == "" {
			return nil, domain.Validation(origin, "owner, target and service definition are required")
		}
		if sub.NotifyProtocol == "" {
			return nil, domain.Validation(origin, "notify protocol is required")
		}
		key := sub.TripleKey()
		if seen[key] {
			return nil, domain.Conflict(origin, "Duplicate subscription: %s", key)
		}
		seen[key] = true
	}

	created, err := r.store.Create(ctx, subs)
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) && errors.Is(err, domain.ErrConflict) {
			return nil, domain.Conflict(origin, "%s", derr.Message)
		}
		return nil, domain.Storage(origin, "subscription.create", err)
	}

	for range created {
		r.metrics.RecordSubscriptionCreated()
	}
	r.logger.Info("subscriptions created",
		zap.Int("count", len(created)),
		zap.String("origin", origin))

	return created, nil
}

// GetExisting returns the subscription for the uniqueness triple, or nil
func (r *Registry) GetExisting(ctx context.Context, origin, owner, target, serviceDefinition string) (*domain.Subscription, error) {
	sub, err := r.store.FindByTriple(ctx, owner, target, serviceDefinition)
	if err != nil {
		return nil, domain.Storage(origin, "subscription.find", err)
	}
	return sub, nil
}

// Update persists new requirement and notification fields onto an
// existing subscription
func (r *Registry) Update(ctx context.Context, origin string, sub domain.Subscription) (domain.Subscription, error) {
	updated, err := r.store.Update(ctx, sub)
	if err != nil {
		return domain.Subscription{}, domain.Storage(origin, "subscription.update", err)
	}

	r.logger.Info("subscription updated",
		zap.String("subscription_id", updated.ID),
		zap.String("owner", updated.OwnerSystem),
		zap.String("origin", origin))

	return updated, nil
}

// Get returns the subscriptions with the given ids; unknown ids are skipped
func (r *Registry) Get(ctx context.Context, origin string, ids []string) ([]domain.Subscription, error) {
	subs, err := r.store.Get(ctx, ids)
	if err != nil {
		return nil, domain.Storage(origin, "subscription.get", err)
	}
	return subs, nil
}

// Query returns a filtered, paginated view of the stored subscriptions
func (r *Registry) Query(ctx context.Context, origin string, filter domain.SubscriptionFilter, page domain.PageRequest) (domain.Page[domain.Subscription], error) {
	result, err := r.store.Query(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Subscription]{}, domain.Storage(origin, "subscription.query", err)
	}
	return result, nil
}

// Delete removes a single subscription
func (r *Registry) Delete(ctx context.Context, origin, id string) error {
	return r.DeleteInBatch(ctx, origin, []string{id})
}

// DeleteInBatch removes the given subscriptions
func (r *Registry) DeleteInBatch(ctx context.Context, origin string, ids []string) error {
	if err := r.store.DeleteInBatch(ctx, ids); err != nil {
		return domain.Storage(origin, "subscription.delete", err)
	}
	for range ids {
		r.metrics.RecordSubscriptionDeleted()
	}
	return nil
}
