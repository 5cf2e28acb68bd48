package engine

import (
	"context"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/cloudmesh/orchestrator/pkg/ports"
)

// HistoryService is the read-only query surface over job records
type HistoryService struct {
	jobs ports.JobStore
}

// NewHistoryService creates a new history service
func NewHistoryService(jobs ports.JobStore) *HistoryService {
	return &HistoryService{jobs: jobs}
}

// Query returns a filtered, paginated view of the stored jobs. Storage
// failures propagate with origin attached; there is no retry.
func (h *HistoryService) Query(ctx context.Context, origin string, filter domain.JobFilter, page domain.PageRequest) (domain.Page[domain.Job], error) {
	result, err := h.jobs.Query(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Job]{}, domain.Storage(origin, "job.query", err)
	}
	return result, nil
}
