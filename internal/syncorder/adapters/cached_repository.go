package adapters

import (
	"context"

	"github.com/dejobratic/ordersync/internal/cache"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// CachedSyncOrderRepository reads SyncOrders through two independent caches,
// one per lookup key. Writes made through this repository refresh both;
// writes made elsewhere are only visible after ClearCache.
type CachedSyncOrderRepository struct {
	repo    ports.SyncOrderRepository
	byID    *cache.ReadThrough[int64, domain.SyncOrder]
	byOrder *cache.ReadThrough[int64, domain.SyncOrder]
}

func NewCachedSyncOrderRepository(
	repo ports.SyncOrderRepository,
	byID *cache.ReadThrough[int64, domain.SyncOrder],
	byOrder *cache.ReadThrough[int64, domain.SyncOrder],
) *CachedSyncOrderRepository {
	return &CachedSyncOrderRepository{repo: repo, byID: byID, byOrder: byOrder}
}

func (r *CachedSyncOrderRepository) GetByOrderID(ctx context.Context, orderID int64) (*domain.SyncOrder, error) {
	so, err := r.byOrder.Load(orderID, func() (domain.SyncOrder, error) {
		found, err := r.repo.GetByOrderID(ctx, orderID)
		if err != nil {
			return domain.SyncOrder{}, err
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	return &so, nil
}

func (r *CachedSyncOrderRepository) GetByID(ctx context.Context, id int64) (*domain.SyncOrder, error) {
	so, err := r.byID.Load(id, func() (domain.SyncOrder, error) {
		found, err := r.repo.GetByID(ctx, id)
		if err != nil {
			return domain.SyncOrder{}, err
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	return &so, nil
}

func (r *CachedSyncOrderRepository) Save(ctx context.Context, syncOrder domain.SyncOrder) (*domain.SyncOrder, error) {
	saved, err := r.repo.Save(ctx, syncOrder)
	if err != nil {
		r.byID.Delete(syncOrder.EntityID)
		r.byOrder.Delete(syncOrder.OrderID)
		return nil, err
	}
	r.byID.Put(saved.EntityID, *saved)
	r.byOrder.Put(saved.OrderID, *saved)
	return saved, nil
}

func (r *CachedSyncOrderRepository) Delete(ctx context.Context, syncOrder domain.SyncOrder) error {
	r.byID.Delete(syncOrder.EntityID)
	r.byOrder.Delete(syncOrder.OrderID)
	return r.repo.Delete(ctx, syncOrder)
}

// List always reads from the underlying repository.
func (r *CachedSyncOrderRepository) List(ctx context.Context, criteria ports.SearchCriteria) (ports.SyncOrderList, error) {
	return r.repo.List(ctx, criteria)
}

func (r *CachedSyncOrderRepository) ClearCache() {
	r.byID.Clear()
	r.byOrder.Clear()
	r.repo.ClearCache()
}

// CachedHistoryRepository caches history rows by id.
type CachedHistoryRepository struct {
	repo ports.HistoryRepository
	byID *cache.ReadThrough[int64, domain.History]
}

func NewCachedHistoryRepository(repo ports.HistoryRepository, byID *cache.ReadThrough[int64, domain.History]) *CachedHistoryRepository {
	return &CachedHistoryRepository{repo: repo, byID: byID}
}

func (r *CachedHistoryRepository) GetByID(ctx context.Context, id int64) (*domain.History, error) {
	h, err := r.byID.Load(id, func() (domain.History, error) {
		found, err := r.repo.GetByID(ctx, id)
		if err != nil {
			return domain.History{}, err
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *CachedHistoryRepository) Save(ctx context.Context, history domain.History) (*domain.History, error) {
	saved, err := r.repo.Save(ctx, history)
	if err != nil {
		return nil, err
	}
	r.byID.Put(saved.EntityID, *saved)
	return saved, nil
}

func (r *CachedHistoryRepository) Delete(ctx context.Context, history domain.History) error {
	r.byID.Delete(history.EntityID)
	return r.repo.Delete(ctx, history)
}

func (r *CachedHistoryRepository) List(ctx context.Context, criteria ports.HistoryCriteria) (ports.HistoryList, error) {
	return r.repo.List(ctx, criteria)
}

func (r *CachedHistoryRepository) CreateFromSyncOrder(
	ctx context.Context,
	syncOrder domain.SyncOrder,
	action domain.Action,
	via string,
	result domain.Result,
	info map[string]any,
) (*domain.History, error) {
	created, err := r.repo.CreateFromSyncOrder(ctx, syncOrder, action, via, result, info)
	if err != nil {
		return nil, err
	}
	r.byID.Put(created.EntityID, *created)
	return created, nil
}

func (r *CachedHistoryRepository) ClearCache() {
	r.byID.Clear()
	r.repo.ClearCache()
}
