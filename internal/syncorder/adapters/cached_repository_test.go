package adapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejobratic/ordersync/internal/cache"
	"github.com/dejobratic/ordersync/internal/syncorder/adapters"
	"github.com/dejobratic/ordersync/internal/syncorder/adapters/memory"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

type countingSyncOrders struct {
	*memory.SyncOrderRepository
	byOrderCalls int
	byIDCalls    int
	clears       int
}

func (c *countingSyncOrders) GetByOrderID(ctx context.Context, orderID int64) (*domain.SyncOrder, error) {
	c.byOrderCalls++
	return c.SyncOrderRepository.GetByOrderID(ctx, orderID)
}

func (c *countingSyncOrders) GetByID(ctx context.Context, id int64) (*domain.SyncOrder, error) {
	c.byIDCalls++
	return c.SyncOrderRepository.GetByID(ctx, id)
}

func (c *countingSyncOrders) ClearCache() {
	c.clears++
}

func newCached(store *memory.Store) (*adapters.CachedSyncOrderRepository, *countingSyncOrders) {
	inner := &countingSyncOrders{SyncOrderRepository: store.SyncOrders()}
	return adapters.NewCachedSyncOrderRepository(inner, cache.New[int64, domain.SyncOrder](), cache.New[int64, domain.SyncOrder]()), inner
}

func TestCachedSyncOrderRepositoryReadsThrough(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	saved, err := store.SyncOrders().Save(ctx, domain.SyncOrder{OrderID: 5, StoreID: 1, Status: domain.StatusQueued})
	require.NoError(t, err)

	repo, inner := newCached(store)

	for i := 0; i < 3; i++ {
		so, err := repo.GetByOrderID(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, saved.EntityID, so.EntityID)
	}
	assert.Equal(t, 1, inner.byOrderCalls)

	_, err = repo.GetByID(ctx, saved.EntityID)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.byIDCalls, "lookup by id uses its own cache")
}

func TestCachedSyncOrderRepositoryServesStaleDataUntilCleared(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	saved, err := store.SyncOrders().Save(ctx, domain.SyncOrder{OrderID: 5, StoreID: 1, Status: domain.StatusQueued})
	require.NoError(t, err)

	repo, inner := newCached(store)
	_, err = repo.GetByOrderID(ctx, 5)
	require.NoError(t, err)

	changed := *saved
	changed.Status = domain.StatusProcessing
	_, err = store.SyncOrders().Save(ctx, changed)
	require.NoError(t, err)

	stale, err := repo.GetByOrderID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, stale.Status)

	repo.ClearCache()
	assert.Equal(t, 1, inner.clears)

	fresh, err := repo.GetByOrderID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, fresh.Status)
}

func TestCachedSyncOrderRepositorySaveRefreshesBothKeys(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo, inner := newCached(store)

	saved, err := repo.Save(ctx, domain.SyncOrder{OrderID: 9, StoreID: 1, Status: domain.StatusQueued})
	require.NoError(t, err)

	byOrder, err := repo.GetByOrderID(ctx, 9)
	require.NoError(t, err)
	byID, err := repo.GetByID(ctx, saved.EntityID)
	require.NoError(t, err)

	assert.Equal(t, saved.EntityID, byOrder.EntityID)
	assert.Equal(t, saved.EntityID, byID.EntityID)
	assert.Zero(t, inner.byOrderCalls)
	assert.Zero(t, inner.byIDCalls)

	require.NoError(t, repo.Delete(ctx, *saved))
	_, err = repo.GetByOrderID(ctx, 9)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestCachedSyncOrderRepositoryDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo, inner := newCached(store)

	_, err := repo.GetByOrderID(ctx, 1)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	_, err = store.SyncOrders().Save(ctx, domain.SyncOrder{OrderID: 1, StoreID: 1, Status: domain.StatusQueued})
	require.NoError(t, err)

	so, err := repo.GetByOrderID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, so.Status)
	assert.Equal(t, 2, inner.byOrderCalls)
}

func TestCachedHistoryRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	so, err := store.SyncOrders().Save(ctx, domain.SyncOrder{OrderID: 1, StoreID: 1, Status: domain.StatusQueued})
	require.NoError(t, err)

	repo := adapters.NewCachedHistoryRepository(store.History(), cache.New[int64, domain.History]())
	created, err := repo.CreateFromSyncOrder(ctx, *so, domain.ActionQueue, "cli", domain.ResultSuccess, nil)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created.EntityID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionQueue, got.Action)

	require.NoError(t, repo.Delete(ctx, *created))
	_, err = repo.GetByID(ctx, created.EntityID)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
