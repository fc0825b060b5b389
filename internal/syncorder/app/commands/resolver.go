package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// Resolver maps an order id to its SyncOrder, handing out a virtual record
// for orders that have never been tracked.
type Resolver struct {
	orders     ports.OrderLookup
	syncOrders ports.SyncOrderRepository
}

// NewResolver constructs a Resolver.
func NewResolver(orders ports.OrderLookup, syncOrders ports.SyncOrderRepository) *Resolver {
	return &Resolver{orders: orders, syncOrders: syncOrders}
}

// Resolve returns the SyncOrder for orderID. A missing host order yields
// domain.ErrOrderNotFound.
func (r *Resolver) Resolve(ctx context.Context, orderID int64) (*domain.SyncOrder, error) {
	order, err := r.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d", domain.ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}

	syncOrder, err := r.syncOrders.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return domain.NewVirtualSyncOrder(*order), nil
		}
		return nil, fmt.Errorf("get sync order for order %d: %w", orderID, err)
	}
	return syncOrder, nil
}
