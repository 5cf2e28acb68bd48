package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockStoreReplaceInserts(t *testing.T) {
	store := NewLockStore()
	ctx := context.Background()

	created, err := store.Replace(ctx, nil, []domain.Lock{
		{ServiceInstanceID: "instance-a", Owner: "system-1"},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.NotEmpty(t, created[0].ID)

	locks, err := store.GetByServiceInstanceIDs(ctx, []string{"instance-a"})
	require.NoError(t, err)
	assert.Len(t, locks, 1)
}

func TestLockStoreReplaceConflictWritesNothing(t *testing.T) {
	store := NewLockStore()
	ctx := context.Background()

	_, err := store.Replace(ctx, nil, []domain.Lock{
		{ServiceInstanceID: "instance-a", Owner: "system-1"},
	})
	require.NoError(t, err)

	_, err = store.Replace(ctx, nil, []domain.Lock{
		{ServiceInstanceID: "instance-b", Owner: "system-2"},
		{ServiceInstanceID: "instance-a", Owner: "system-2"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Contains(t, err.Error(), "Already locked: instance-a")

	locks, err := store.GetByServiceInstanceIDs(ctx, []string{"instance-b"})
	require.NoError(t, err)
	assert.Empty(t, locks)
}

func TestLockStoreReplaceSweepsExpired(t *testing.T) {
	store := NewLockStore()
	ctx := context.Background()

	expired := time.Now().Add(-time.Minute)
	old, err := store.Replace(ctx, nil, []domain.Lock{
		{ServiceInstanceID: "instance-a", Owner: "system-1", ExpiresAt: &expired},
	})
	require.NoError(t, err)

	created, err := store.Replace(ctx, nil, []domain.Lock{
		{ServiceInstanceID: "instance-a", Owner: "system-2"},
	})
	require.NoError(t, err)

	locks, err := store.GetByServiceInstanceIDs(ctx, []string{"instance-a"})
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, created[0].ID, locks[0].ID)
	assert.NotEqual(t, old[0].ID, locks[0].ID)
}

func TestLockStoreReplaceDeletesGivenIDs(t *testing.T) {
	store := NewLockStore()
	ctx := context.Background()

	live, err := store.Replace(ctx, nil, []domain.Lock{
		{ServiceInstanceID: "instance-a", Owner: "system-1"},
	})
	require.NoError(t, err)

	// Explicitly deleting the live lock frees the instance within the
	// same critical section.
	created, err := store.Replace(ctx, []string{live[0].ID}, []domain.Lock{
		{ServiceInstanceID: "instance-a", Owner: "system-2"},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "system-2", created[0].Owner)
}

func TestLockStoreQueryFilters(t *testing.T) {
	store := NewLockStore()
	ctx := context.Background()

	_, err := store.Replace(ctx, nil, []domain.Lock{
		{ServiceInstanceID: "instance-a", Owner: "system-1"},
		{ServiceInstanceID: "instance-b", Owner: "system-2"},
	})
	require.NoError(t, err)

	page, err := store.Query(ctx, domain.LockFilter{Owner: "system-1"}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "instance-a", page.Items[0].ServiceInstanceID)

	page, err = store.Query(ctx, domain.LockFilter{ServiceInstanceIDs: []string{"instance-b"}}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}
