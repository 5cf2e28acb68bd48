package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionStoreCreateRejectsDuplicateTriple(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()

	_, err := store.Create(ctx, []domain.Subscription{
		{OwnerSystem: "system-1", TargetSystem: "target-1", ServiceDefinition: "temperature", NotifyProtocol: "http"},
	})
	require.NoError(t, err)

	_, err = store.Create(ctx, []domain.Subscription{
		{OwnerSystem: "system-1", TargetSystem: "target-2", ServiceDefinition: "temperature", NotifyProtocol: "http"},
		{OwnerSystem: "system-1", TargetSystem: "target-1", ServiceDefinition: "temperature", NotifyProtocol: "http"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	// The whole batch was rejected.
	page, err := store.Query(ctx, domain.SubscriptionFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestSubscriptionStoreFindByTriple(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()

	created, err := store.Create(ctx, []domain.Subscription{
		{OwnerSystem: "system-1", TargetSystem: "target-1", ServiceDefinition: "temperature", NotifyProtocol: "http"},
	})
	require.NoError(t, err)

	found, err := store.FindByTriple(ctx, "system-1", "target-1", "temperature")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created[0].ID, found.ID)

	missing, err := store.FindByTriple(ctx, "system-1", "target-1", "humidity")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSubscriptionStoreUpdate(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()

	created, err := store.Create(ctx, []domain.Subscription{
		{OwnerSystem: "system-1", TargetSystem: "target-1", ServiceDefinition: "temperature",
			RequirementSnapshot: `{"service_definition":"temperature"}`, NotifyProtocol: "http"},
	})
	require.NoError(t, err)

	updated, err := store.Update(ctx, domain.Subscription{
		ID:                  created[0].ID,
		RequirementSnapshot: `{"service_definition":"temperature","intercloud_only":true}`,
		NotifyProtocol:      "mqtt",
		NotifyProperties:    "topic=alerts",
	})
	require.NoError(t, err)
	assert.Equal(t, "mqtt", updated.NotifyProtocol)

	// Identity and creation time are preserved.
	assert.Equal(t, "system-1", updated.OwnerSystem)
	assert.Equal(t, created[0].CreatedAt, updated.CreatedAt)

	loaded, err := store.Get(ctx, []string{created[0].ID})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "mqtt", loaded[0].NotifyProtocol)
	assert.Contains(t, loaded[0].RequirementSnapshot, "intercloud_only")

	_, err = store.Update(ctx, domain.Subscription{ID: "no-such-id"})
	assert.Error(t, err)
}

func TestSubscriptionStoreDeleteFreesTriple(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()

	created, err := store.Create(ctx, []domain.Subscription{
		{OwnerSystem: "system-1", TargetSystem: "target-1", ServiceDefinition: "temperature", NotifyProtocol: "http"},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteInBatch(ctx, []string{created[0].ID}))

	_, err = store.Create(ctx, []domain.Subscription{
		{OwnerSystem: "system-1", TargetSystem: "target-1", ServiceDefinition: "temperature", NotifyProtocol: "http"},
	})
	assert.NoError(t, err)
}

func TestSubscriptionStoreQueryFilters(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()

	_, err := store.Create(ctx, []domain.Subscription{
		{OwnerSystem: "system-1", TargetSystem: "target-1", ServiceDefinition: "temperature", NotifyProtocol: "http"},
		{OwnerSystem: "system-1", TargetSystem: "target-2", ServiceDefinition: "humidity", NotifyProtocol: "http"},
		{OwnerSystem: "system-2", TargetSystem: "target-1", ServiceDefinition: "temperature", NotifyProtocol: "http"},
	})
	require.NoError(t, err)

	page, err := store.Query(ctx, domain.SubscriptionFilter{OwnerSystems: []string{"system-1"}}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = store.Query(ctx, domain.SubscriptionFilter{
		OwnerSystems:  []string{"system-1"},
		TargetSystems: []string{"target-2"},
	}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "humidity", page.Items[0].ServiceDefinition)
}
