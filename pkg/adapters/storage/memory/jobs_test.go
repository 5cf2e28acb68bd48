package memory

import (
	"context"
	"testing"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStoreCreateAssignsIDs(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	created, err := store.Create(ctx, []domain.Job{
		{Type: domain.JobTypePull, RequesterSystem: "system-1"},
		{Type: domain.JobTypePush, RequesterSystem: "system-1"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotEmpty(t, created[0].ID)
	assert.NotEqual(t, created[0].ID, created[1].ID)
	assert.Equal(t, domain.JobStatusPending, created[0].Status)
	assert.False(t, created[0].CreatedAt.IsZero())
}

func TestJobStoreGetSkipsUnknownIDs(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	created, err := store.Create(ctx, []domain.Job{{Type: domain.JobTypePull}})
	require.NoError(t, err)

	jobs, err := store.Get(ctx, []string{created[0].ID, "no-such-id"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, created[0].ID, jobs[0].ID)
}

func TestJobStoreQueryFilters(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	_, err := store.Create(ctx, []domain.Job{
		{Type: domain.JobTypePull, RequesterSystem: "system-1", ServiceDefinition: "temperature"},
		{Type: domain.JobTypePush, RequesterSystem: "system-1", ServiceDefinition: "temperature", SubscriptionID: "sub-1"},
		{Type: domain.JobTypePush, RequesterSystem: "system-2", ServiceDefinition: "humidity", SubscriptionID: "sub-2"},
	})
	require.NoError(t, err)

	page, err := store.Query(ctx, domain.JobFilter{Types: []domain.JobType{domain.JobTypePush}}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = store.Query(ctx, domain.JobFilter{RequesterSystem: "system-1"}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = store.Query(ctx, domain.JobFilter{SubscriptionIDs: []string{"sub-2"}}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "humidity", page.Items[0].ServiceDefinition)
}

func TestJobStoreQueryPagination(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	jobs := make([]domain.Job, 5)
	for i := range jobs {
		jobs[i] = domain.Job{Type: domain.JobTypePull}
	}
	_, err := store.Create(ctx, jobs)
	require.NoError(t, err)

	page, err := store.Query(ctx, domain.JobFilter{}, domain.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Size)

	// Past the end: empty items, same total.
	page, err = store.Query(ctx, domain.JobFilter{}, domain.PageRequest{Page: 9, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(5), page.Total)
}

func TestJobStoreUpdateStatus(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	created, err := store.Create(ctx, []domain.Job{{Type: domain.JobTypePush}})
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, created[0].ID, domain.JobStatusError, "boom"))

	jobs, err := store.Get(ctx, []string{created[0].ID})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusError, jobs[0].Status)
	assert.Equal(t, "boom", jobs[0].Message)

	assert.Error(t, store.UpdateStatus(ctx, "no-such-id", domain.JobStatusDone, ""))
}

func TestJobStoreDeleteInBatch(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	created, err := store.Create(ctx, []domain.Job{{Type: domain.JobTypePull}, {Type: domain.JobTypePull}})
	require.NoError(t, err)

	require.NoError(t, store.DeleteInBatch(ctx, []string{created[0].ID, "no-such-id"}))

	page, err := store.Query(ctx, domain.JobFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}
