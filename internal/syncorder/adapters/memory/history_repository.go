package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// HistoryRepository is the in-memory SyncOrderHistory store.
type HistoryRepository struct {
	store *Store
}

func (r *HistoryRepository) GetByID(_ context.Context, id int64) (*domain.History, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	h, ok := r.store.history[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := h
	return &copy, nil
}

// Save appends a history row. Rows must reference a persisted sync order.
func (r *HistoryRepository) Save(_ context.Context, history domain.History) (*domain.History, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.syncOrders[history.SyncOrderID]; !ok {
		return nil, fmt.Errorf("save history: sync order %d: %w", history.SyncOrderID, ports.ErrNotFound)
	}
	if history.EntityID == 0 {
		r.store.nextHistoryID++
		history.EntityID = r.store.nextHistoryID
	}
	if history.Timestamp.IsZero() {
		history.Timestamp = r.store.now()
	}
	r.store.history[history.EntityID] = history
	saved := history
	return &saved, nil
}

func (r *HistoryRepository) Delete(_ context.Context, history domain.History) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.history[history.EntityID]; !ok {
		return ports.ErrNotFound
	}
	delete(r.store.history, history.EntityID)
	return nil
}

func (r *HistoryRepository) List(_ context.Context, criteria ports.HistoryCriteria) (ports.HistoryList, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []domain.History
	for _, id := range sortedKeys(r.store.history) {
		h := r.store.history[id]
		if !r.matches(h, criteria) {
			continue
		}
		matched = append(matched, h)
	}
	total := len(matched)

	if criteria.NewestFirst {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	return ports.HistoryList{Items: paginate(matched, 1, criteria.Limit), TotalCount: total}, nil
}

func (r *HistoryRepository) CreateFromSyncOrder(
	ctx context.Context,
	syncOrder domain.SyncOrder,
	action domain.Action,
	via string,
	result domain.Result,
	info map[string]any,
) (*domain.History, error) {
	if syncOrder.IsVirtual() {
		return nil, fmt.Errorf("create history: %w: sync order for order %d is not persisted", domain.ErrInvalidArgument, syncOrder.OrderID)
	}
	return r.Save(ctx, domain.NewHistory(syncOrder, action, via, result, info, r.store.now()))
}

// ClearCache is a no-op; the store is always current.
func (r *HistoryRepository) ClearCache() {}

// SetTimestamp rewrites the timestamp of a row to simulate age in tests.
func (r *HistoryRepository) SetTimestamp(id int64, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	h, ok := r.store.history[id]
	if !ok {
		return ports.ErrNotFound
	}
	h.Timestamp = at.UTC()
	r.store.history[id] = h
	return nil
}

func (r *HistoryRepository) matches(h domain.History, c ports.HistoryCriteria) bool {
	if c.SyncOrderID != 0 && h.SyncOrderID != c.SyncOrderID {
		return false
	}
	if c.AfterEntityID > 0 && h.EntityID <= c.AfterEntityID {
		return false
	}
	if c.Before != nil && h.Timestamp.After(*c.Before) {
		return false
	}
	owner, ok := r.store.syncOrders[h.SyncOrderID]
	if c.SyncStatus != nil && (!ok || owner.Status != *c.SyncStatus) {
		return false
	}
	if len(c.StoreIDs) > 0 && (!ok || !containsInt64(c.StoreIDs, owner.StoreID)) {
		return false
	}
	return true
}
