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

// JobStore implements ports.JobStore using an in-memory map
type JobStore struct {
	jobs map[string]domain.Job
	mu   sync.RWMutex
}

// NewJobStore creates a new in-memory job store
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]domain.Job),
	}
}

// Create persists a batch of jobs, assigning ids and creation timestamps
func (s *JobStore) Create(ctx context.Context, jobs []domain.Job) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	created := make([]domain.Job, 0, len(jobs))
	for _, job := range jobs {
		job.ID = uuid.New().String()
		job.CreatedAt = now
		if job.Status == "" {
			job.Status = domain.JobStatusPending
		}
		created = append(created, job)
	}

	// Insert only after the whole batch is prepared, so a panic or
	// validation failure above never leaves a partial commit.
	for _, job := range created {
		s.jobs[job.ID] = job
	}

	return created, nil
}

// Get returns the jobs with the given ids; unknown ids are skipped
func (s *JobStore) Get(ctx context.Context, ids []string) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]domain.Job, 0, len(ids))
	for _, id := range ids {
		if job, ok := s.jobs[id]; ok {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// Query returns a filtered, paginated view of the stored jobs
func (s *JobStore) Query(ctx context.Context, filter domain.JobFilter, page domain.PageRequest) (domain.Page[domain.Job], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Job, 0)
	for _, job := range s.jobs {
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
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}

	job.Status = status
	job.Message = message
	s.jobs[id] = job
	return nil
}

// DeleteInBatch removes the given jobs; unknown ids are ignored
func (s *JobStore) DeleteInBatch(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.jobs, id)
	}
	return nil
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
