package memory

import (
	"context"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// OrderLookup serves host orders from the store.
type OrderLookup struct {
	store *Store
}

// Add registers a host order.
func (l *OrderLookup) Add(order domain.Order) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.orders[order.ID] = order
}

func (l *OrderLookup) Get(_ context.Context, orderID int64) (*domain.Order, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	order, ok := l.store.orders[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := order
	return &copy, nil
}
