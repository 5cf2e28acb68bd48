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

const jobKeyPrefix = "orch:job:row:"

// JobStore implements ports.JobStore using Redis with JSON serialization
type JobStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewJobStore creates a new Redis job store
func NewJobStore(client *redis.Client, logger *zap.Logger) *JobStore {
	return &JobStore{
		client: client,
		logger: logger,
	}
}

// Create persists a batch of jobs in one transaction, assigning ids
func (s *JobStore) Create(ctx context.Context, jobs []domain.Job) ([]domain.Job, error) {
	now := time.Now()
	created := make([]domain.Job, 0, len(jobs))

	pipe := s.client.TxPipeline()
	for _, job := range jobs {
		job.ID = uuid.New().String()
		job.CreatedAt = now
		if job.Status == "" {
			job.Status = domain.JobStatusPending
		}

		data, err := json.Marshal(job)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal job: %w", err)
		}
		pipe.Set(ctx, jobKey(job.ID), data, 0)
		created = append(created, job)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create jobs: %w", err)
	}

	s.logger.Debug("jobs created", zap.Int("count", len(created)))
	return created, nil
}

// Get returns the jobs with the given ids; unknown ids are skipped
func (s *JobStore) Get(ctx context.Context, ids []string) ([]domain.Job, error) {
	if len(ids) == 0 {
		return []domain.Job{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, jobKey(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(values))
	for _, value := range values {
		data, ok := value.(string)
		if !ok {
			continue
		}
		var job domain.Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Query returns a filtered, paginated view of the stored jobs
func (s *JobStore) Query(ctx context.Context, filter domain.JobFilter, page domain.PageRequest) (domain.Page[domain.Job], error) {
	jobs, err := s.scanAll(ctx)
	if err != nil {
		return domain.Page[domain.Job]{}, err
	}

	matched := make([]domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if matchJob(&job, &filter) {
			matched = append(matched, job)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return domain.NewPage(matched, page), nil
}

// UpdateStatus mutates the status of a single job
func (s *JobStore) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, message string) error {
	key := jobKey(id)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("job not found: %s", id)
		}
		return fmt.Errorf("failed to get job: %w", err)
	}

	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	job.Status = status
	job.Message = message

	updated, err := json.Marshal(&job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.client.Set(ctx, key, updated, 0).Err(); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	s.logger.Debug("job status updated",
		zap.String("job_id", id),
		zap.String("status", string(status)))

	return nil
}

// DeleteInBatch removes the given jobs; unknown ids are ignored
func (s *JobStore) DeleteInBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, jobKey(id))
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete jobs: %w", err)
	}
	return nil
}

// scanAll loads every job row via cursor scan
func (s *JobStore) scanAll(ctx context.Context) ([]domain.Job, error) {
	var cursor uint64
	var keys []string

	for {
		batch, next, err := s.client.Scan(ctx, cursor, jobKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	jobs := make([]domain.Job, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var job domain.Job
		if err := json.Unmarshal(data, &job); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func matchJob(job *domain.Job, filter *domain.JobFilter) bool {
	if len(filter.IDs) > 0 && !containsString(filter.IDs, job.ID) {
		return false
	}
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if job.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, st := range filter.Statuses {
			if job.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.RequesterSystem != "" && job.RequesterSystem != filter.RequesterSystem {
		return false
	}
	if filter.TargetSystem != "" && job.TargetSystem != filter.TargetSystem {
		return false
	}
	if filter.ServiceDefinition != "" && job.ServiceDefinition != filter.ServiceDefinition {
		return false
	}
	if len(filter.SubscriptionIDs) > 0 && !containsString(filter.SubscriptionIDs, job.SubscriptionID) {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}
