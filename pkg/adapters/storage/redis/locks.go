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
	lockRowPrefix      = "orch:lock:row:"
	lockInstancePrefix = "orch:lock:inst:"
)

// replaceScript is the lock acquire critical section: it refuses the
// whole batch when any requested service instance still carries a live
// pointer key, then writes every instance pointer and lock row. Lease
// expiry rides on the key TTL, so liveness is a plain EXISTS check and
// expired leases vanish on their own.
//
// KEYS: one instance pointer key per new lock.
// ARGV: per lock: id, row payload, TTL in milliseconds ("0" = no expiry).
var replaceScript = redis.NewScript(`
for i = 1, #KEYS do
	if redis.call('EXISTS', KEYS[i]) == 1 then
		return redis.error_reply('CONFLICT ' .. string.sub(KEYS[i], string.len(ARGV[1]) + 1))
	end
end
for i = 1, #KEYS do
	local id = ARGV[3 * i]
	local payload = ARGV[3 * i + 1]
	local px = tonumber(ARGV[3 * i + 2])
	if px > 0 then
		redis.call('SET', KEYS[i], id, 'PX', px)
		redis.call('SET', ARGV[2] .. id, payload, 'PX', px)
	else
		redis.call('SET', KEYS[i], id)
		redis.call('SET', ARGV[2] .. id, payload)
	end
end
return 'OK'
`)

// releaseScript deletes a lock row and its instance pointer only while
// the pointer still names that lock, so a release can never remove a
// lease acquired in between.
//
// KEYS[1]: instance pointer key, KEYS[2]: lock row key.
// ARGV[1]: lock id.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	redis.call('DEL', KEYS[1])
end
return redis.call('DEL', KEYS[2])
`)

// LockStore implements ports.LockStore using Redis. The Lua-scripted
// Replace keeps "at most one active lock per service instance" true
// across process instances, not just within one.
type LockStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewLockStore creates a new Redis lock store
func NewLockStore(client *redis.Client, logger *zap.Logger) *LockStore {
	return &LockStore{
		client: client,
		logger: logger,
	}
}

// GetByServiceInstanceIDs returns the live locks for the given service
// instances. Expired leases have already vanished with their key TTL.
func (s *LockStore) GetByServiceInstanceIDs(ctx context.Context, serviceInstanceIDs []string) ([]domain.Lock, error) {
	locks := make([]domain.Lock, 0, len(serviceInstanceIDs))
	for _, instanceID := range serviceInstanceIDs {
		id, err := s.client.Get(ctx, instanceKey(instanceID)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve lock instance: %w", err)
		}

		data, err := s.client.Get(ctx, lockKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get lock: %w", err)
		}

		var lock domain.Lock
		if err := json.Unmarshal(data, &lock); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lock: %w", err)
		}
		locks = append(locks, lock)
	}
	return locks, nil
}

// Query returns a filtered, paginated view of the stored locks
func (s *LockStore) Query(ctx context.Context, filter domain.LockFilter, page domain.PageRequest) (domain.Page[domain.Lock], error) {
	var cursor uint64
	var keys []string

	for {
		batch, next, err := s.client.Scan(ctx, cursor, lockRowPrefix+"*", 100).Result()
		if err != nil {
			return domain.Page[domain.Lock]{}, fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	matched := make([]domain.Lock, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var lock domain.Lock
		if err := json.Unmarshal(data, &lock); err != nil {
			continue
		}
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

// Replace atomically inserts the new locks after re-checking liveness in
// one Lua invocation. deleteIDs is accepted for contract symmetry; in
// Redis expired leases are already gone, the rows are deleted up front.
func (s *LockStore) Replace(ctx context.Context, deleteIDs []string, create []domain.Lock) ([]domain.Lock, error) {
	if len(deleteIDs) > 0 {
		if err := s.DeleteInBatch(ctx, deleteIDs); err != nil {
			return nil, err
		}
	}
	if len(create) == 0 {
		return []domain.Lock{}, nil
	}

	now := time.Now()
	keys := make([]string, 0, len(create))
	argv := make([]interface{}, 0, 2+3*len(create))
	argv = append(argv, lockInstancePrefix, lockRowPrefix)

	created := make([]domain.Lock, 0, len(create))
	for _, lock := range create {
		lock.ID = uuid.New().String()
		lock.CreatedAt = now

		data, err := json.Marshal(&lock)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal lock: %w", err)
		}

		px := int64(0)
		if lock.ExpiresAt != nil {
			px = time.Until(*lock.ExpiresAt).Milliseconds()
			if px <= 0 {
				// Requested lease is already expired; nothing to hold.
				px = 1
			}
		}

		keys = append(keys, instanceKey(lock.ServiceInstanceID))
		argv = append(argv, lock.ID, string(data), px)
		created = append(created, lock)
	}

	if err := replaceScript.Run(ctx, s.client, keys, argv...).Err(); err != nil {
		if instance, ok := conflictInstance(err); ok {
			return nil, &domain.Error{
				Sentinel: domain.ErrConflict,
				Message:  "Already locked: " + instance,
			}
		}
		return nil, fmt.Errorf("failed to replace locks: %w", err)
	}

	s.logger.Debug("locks replaced",
		zap.Int("deleted", len(deleteIDs)),
		zap.Int("created", len(created)))

	return created, nil
}

// DeleteInBatch removes the given locks and their instance pointers
func (s *LockStore) DeleteInBatch(ctx context.Context, ids []string) error {
	for _, id := range ids {
		data, err := s.client.Get(ctx, lockKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get lock: %w", err)
		}

		var lock domain.Lock
		if err := json.Unmarshal(data, &lock); err != nil {
			return fmt.Errorf("failed to unmarshal lock: %w", err)
		}

		err = releaseScript.Run(ctx, s.client,
			[]string{instanceKey(lock.ServiceInstanceID), lockKey(id)}, id).Err()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to delete lock: %w", err)
		}
	}
	return nil
}

// conflictInstance extracts the offending service instance id from a
// script conflict reply
func conflictInstance(err error) (string, bool) {
	const prefix = "CONFLICT "
	msg := err.Error()
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):], true
	}
	return "", false
}

func lockKey(id string) string {
	return lockRowPrefix + id
}

func instanceKey(serviceInstanceID string) string {
	return lockInstancePrefix + serviceInstanceID
}
