package memory

import (
	"context"
	"fmt"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// SyncOrderRepository is the in-memory SyncOrder store.
type SyncOrderRepository struct {
	store *Store
}

func (r *SyncOrderRepository) GetByOrderID(_ context.Context, orderID int64) (*domain.SyncOrder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, so := range r.store.syncOrders {
		if so.OrderID == orderID {
			copy := so
			return &copy, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *SyncOrderRepository) GetByID(_ context.Context, id int64) (*domain.SyncOrder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	so, ok := r.store.syncOrders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := so
	return &copy, nil
}

// Save inserts virtual records and updates persisted ones.
func (r *SyncOrderRepository) Save(_ context.Context, syncOrder domain.SyncOrder) (*domain.SyncOrder, error) {
	if err := syncOrder.Validate(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, existing := range r.store.syncOrders {
		if existing.OrderID == syncOrder.OrderID && id != syncOrder.EntityID {
			return nil, fmt.Errorf("save sync order: order %d already tracked by sync order %d", syncOrder.OrderID, id)
		}
	}

	now := r.store.now()
	if syncOrder.IsVirtual() {
		r.store.nextSyncOrderID++
		syncOrder.EntityID = r.store.nextSyncOrderID
		syncOrder.CreatedAt = now
	} else {
		existing, ok := r.store.syncOrders[syncOrder.EntityID]
		if !ok {
			return nil, ports.ErrNotFound
		}
		if existing.OrderID != syncOrder.OrderID {
			return nil, fmt.Errorf("save sync order: %w: order_id is immutable", domain.ErrInvalidArgument)
		}
		syncOrder.CreatedAt = existing.CreatedAt
	}
	syncOrder.UpdatedAt = now

	r.store.syncOrders[syncOrder.EntityID] = syncOrder
	saved := syncOrder
	return &saved, nil
}

// Delete removes the record and its history.
func (r *SyncOrderRepository) Delete(_ context.Context, syncOrder domain.SyncOrder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.syncOrders[syncOrder.EntityID]; !ok {
		return ports.ErrNotFound
	}
	delete(r.store.syncOrders, syncOrder.EntityID)
	for id, h := range r.store.history {
		if h.SyncOrderID == syncOrder.EntityID {
			delete(r.store.history, id)
		}
	}
	return nil
}

// List returns records matching the criteria ordered by entity id.
func (r *SyncOrderRepository) List(_ context.Context, criteria ports.SearchCriteria) (ports.SyncOrderList, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []domain.SyncOrder
	for _, id := range sortedKeys(r.store.syncOrders) {
		so := r.store.syncOrders[id]
		if !r.matches(so, criteria) {
			continue
		}
		matched = append(matched, so)
	}

	total := len(matched)
	if criteria.AfterEntityID > 0 || (criteria.CurrentPage <= 0 && criteria.PageSize > 0) {
		var after []domain.SyncOrder
		for _, so := range matched {
			if so.EntityID > criteria.AfterEntityID {
				after = append(after, so)
			}
		}
		return ports.SyncOrderList{Items: paginate(after, 1, criteria.PageSize), TotalCount: total}, nil
	}

	return ports.SyncOrderList{
		Items:      paginate(matched, criteria.CurrentPage, criteria.PageSize),
		TotalCount: total,
	}, nil
}

// ClearCache is a no-op; the store is always current.
func (r *SyncOrderRepository) ClearCache() {}

func (r *SyncOrderRepository) matches(so domain.SyncOrder, c ports.SearchCriteria) bool {
	if len(c.OrderIDs) > 0 && !containsInt64(c.OrderIDs, so.OrderID) {
		return false
	}
	if len(c.SyncStatuses) > 0 && !containsStatus(c.SyncStatuses, so.Status) {
		return false
	}
	if len(c.StoreIDs) > 0 && !containsInt64(c.StoreIDs, so.StoreID) {
		return false
	}
	if excluded := c.ExcludedOrderStates[so.StoreID]; len(excluded) > 0 {
		if order, ok := r.store.orders[so.OrderID]; ok && containsString(excluded, order.State) {
			return false
		}
	}
	if c.LastActivityBefore != nil && !r.store.lastActivity(so).Before(*c.LastActivityBefore) {
		return false
	}
	return true
}
