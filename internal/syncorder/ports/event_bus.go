package ports

import (
	"context"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

// StatusChange describes a committed sync status transition.
type StatusChange struct {
	OrderID        int64
	StoreID        int64
	SyncOrderID    int64
	OriginalStatus domain.Status
	NewStatus      domain.Status
	Via            string
	OccurredAt     time.Time
}

// EventBus defines the contract for publishing sync lifecycle events.
type EventBus interface {
	PublishSyncStatusChanged(ctx context.Context, change StatusChange) error
}
