package queries

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// GetSyncOrderQuery requests the sync state of an order.
type GetSyncOrderQuery struct {
	OrderID      int64
	HistoryLimit int
}

// Validate ensures the query has valid parameters.
func (q GetSyncOrderQuery) Validate() error {
	if q.OrderID <= 0 {
		return fmt.Errorf("%w: order_id must be positive", domain.ErrInvalidArgument)
	}
	if q.HistoryLimit < 0 {
		return fmt.Errorf("%w: history limit must not be negative", domain.ErrInvalidArgument)
	}
	return nil
}

// SyncOrderView is a sync order with its most recent history rows, newest
// first.
type SyncOrderView struct {
	SyncOrder domain.SyncOrder `json:"sync_order"`
	History   []domain.History `json:"history"`
}

// GetSyncOrderQueryHandler executes GetSyncOrderQuery.
type GetSyncOrderQueryHandler struct {
	syncOrders ports.SyncOrderRepository
	history    ports.HistoryRepository
}

// NewGetSyncOrderQueryHandler constructs a GetSyncOrderQueryHandler.
func NewGetSyncOrderQueryHandler(syncOrders ports.SyncOrderRepository, history ports.HistoryRepository) *GetSyncOrderQueryHandler {
	return &GetSyncOrderQueryHandler{syncOrders: syncOrders, history: history}
}

// Handle returns the view, or domain.ErrOrderNotFound when the order is not
// tracked.
func (h *GetSyncOrderQueryHandler) Handle(ctx context.Context, query GetSyncOrderQuery) (*SyncOrderView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	syncOrder, err := h.syncOrders.GetByOrderID(ctx, query.OrderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d is not tracked", domain.ErrOrderNotFound, query.OrderID)
		}
		return nil, fmt.Errorf("get sync order: %w", err)
	}

	limit := query.HistoryLimit
	if limit == 0 {
		limit = 10
	}
	rows, err := h.history.List(ctx, ports.HistoryCriteria{
		SyncOrderID: syncOrder.EntityID,
		Limit:       limit,
		NewestFirst: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return &SyncOrderView{SyncOrder: *syncOrder, History: rows.Items}, nil
}
