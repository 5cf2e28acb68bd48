package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	subRowPrefix    = "orch:sub:row:"
	subTriplePrefix = "orch:sub:triple:"
)

// createSubsScript inserts a subscription batch only when none of the
// (owner, target, serviceDefinition) triples is taken.
//
// KEYS: one triple index key per subscription.
// ARGV[1]: row key prefix; then per subscription: id, row payload.
var createSubsScript = redis.NewScript(`
for i = 1, #KEYS do
	if redis.call('EXISTS', KEYS[i]) == 1 then
		return redis.error_reply('DUPLICATE ' .. KEYS[i])
	end
end
for i = 1, #KEYS do
	local id = ARGV[2 * i]
	local payload = ARGV[2 * i + 1]
	redis.call('SET', KEYS[i], id)
	redis.call('SET', ARGV[1] .. id, payload)
end
return 'OK'
`)

// SubscriptionStore implements ports.SubscriptionStore using Redis
type SubscriptionStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSubscriptionStore creates a new Redis subscription store
func NewSubscriptionStore(client *redis.Client, logger *zap.Logger) *SubscriptionStore {
	return &SubscriptionStore{
		client: client,
		logger: logger,
	}
}

// Create persists a batch of subscriptions, rejecting the whole batch on
// any triple collision
func (s *SubscriptionStore) Create(ctx context.Context, subs []domain.Subscription) ([]domain.Subscription, error) {
	now := time.Now()
	keys := make([]string, 0, len(subs))
	argv := make([]interface{}, 0, 1+2*len(subs))
	argv = append(argv, subRowPrefix)

	created := make([]domain.Subscription, 0, len(subs))
	for _, sub := range subs {
		sub.ID = uuid.New().String()
		sub.CreatedAt = now

		data, err := json.Marshal(&sub)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal subscription: %w", err)
		}

		keys = append(keys, tripleKey(sub.TripleKey()))
		argv = append(argv, sub.ID, string(data))
		created = append(created, sub)
	}

	if err := createSubsScript.Run(ctx, s.client, keys, argv...).Err(); err != nil {
		if triple, ok := duplicateTriple(err); ok {
			return nil, &domain.Error{
				Sentinel: domain.ErrConflict,
				Message:  "Duplicate subscription: " + triple,
			}
		}
		return nil, fmt.Errorf("failed to create subscriptions: %w", err)
	}

	s.logger.Debug("subscriptions created", zap.Int("count", len(created)))
	return created, nil
}

// Get returns the subscriptions with the given ids; unknown ids are skipped
func (s *SubscriptionStore) Get(ctx context.Context, ids []string) ([]domain.Subscription, error) {
	if len(ids) == 0 {
		return []domain.Subscription{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, subKey(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}

	subs := make([]domain.Subscription, 0, len(values))
	for _, value := range values {
		data, ok := value.(string)
		if !ok {
			continue
		}
		var sub domain.Subscription
		if err := json.Unmarshal([]byte(data), &sub); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

// Query returns a filtered, paginated view of the stored subscriptions
func (s *SubscriptionStore) Query(ctx context.Context, filter domain.SubscriptionFilter, page domain.PageRequest) (domain.Page[domain.Subscription], error) {
	var cursor uint64
	var keys []string

	for {
		batch, next, err := s.client.Scan(ctx, cursor, subRowPrefix+"*", 100).Result()
		if err != nil {
			return domain.Page[domain.Subscription]{}, fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	matched := make([]domain.Subscription, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var sub domain.Subscription
		if err := json.Unmarshal(data, &sub); err != nil {
			continue
		}
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
	triple := owner + "|" + target + "|" + serviceDefinition

	id, err := s.client.Get(ctx, tripleKey(triple)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscription triple: %w", err)
	}

	data, err := s.client.Get(ctx, subKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	var sub domain.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
	}
	return &sub, nil
}

// Update overwrites the mutable fields of an existing subscription. The
// triple index entry stays untouched because the triple never changes.
func (s *SubscriptionStore) Update(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	data, err := s.client.Get(ctx, subKey(sub.ID)).Bytes()
	if err == redis.Nil {
		return domain.Subscription{}, fmt.Errorf("subscription not found: %s", sub.ID)
	}
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to get subscription: %w", err)
	}

	var stored domain.Subscription
	if err := json.Unmarshal(data, &stored); err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	stored.RequirementSnapshot = sub.RequirementSnapshot
	stored.NotifyProtocol = sub.NotifyProtocol
	stored.NotifyProperties = sub.NotifyProperties

	payload, err := json.Marshal(&stored)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to marshal subscription: %w", err)
	}
	if err := s.client.Set(ctx, subKey(stored.ID), payload, 0).Err(); err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to update subscription: %w", err)
	}

	s.logger.Debug("subscription updated", zap.String("id", stored.ID))
	return stored, nil
}

// DeleteInBatch removes the given subscriptions and their triple indexes
func (s *SubscriptionStore) DeleteInBatch(ctx context.Context, ids []string) error {
	for _, id := range ids {
		data, err := s.client.Get(ctx, subKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get subscription: %w", err)
		}

		var sub domain.Subscription
		if err := json.Unmarshal(data, &sub); err != nil {
			return fmt.Errorf("failed to unmarshal subscription: %w", err)
		}

		pipe := s.client.TxPipeline()
		pipe.Del(ctx, subKey(id))
		pipe.Del(ctx, tripleKey(sub.TripleKey()))
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
	}
	return nil
}

// duplicateTriple extracts the colliding triple from a script conflict reply
func duplicateTriple(err error) (string, bool) {
	const prefix = "DUPLICATE " + subTriplePrefix
	msg := err.Error()
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):], true
	}
	return "", false
}

func subKey(id string) string {
	return subRowPrefix + id
}

func tripleKey(triple string) string {
	return subTriplePrefix + triple
}
