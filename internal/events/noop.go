// Package events delivers sync lifecycle notifications. Only a logging bus
// exists today; delivery to a broker is the host platform's concern.
package events

import (
	"context"
	"log/slog"

	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// Event names used in logs and metrics.
const (
	EventSyncStatusChanged = "sync.status_changed"
)

// NoopEventBus logs events without delivering them anywhere.
type NoopEventBus struct {
	logger *slog.Logger
}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus(logger *slog.Logger) *NoopEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopEventBus{logger: logger}
}

func (n *NoopEventBus) PublishSyncStatusChanged(ctx context.Context, change ports.StatusChange) error {
	n.logger.DebugContext(ctx, "event::"+EventSyncStatusChanged,
		"order_id", change.OrderID,
		"store_id", change.StoreID,
		"sync_order_id", change.SyncOrderID,
		"original_status", change.OriginalStatus.String(),
		"new_status", change.NewStatus.String(),
		"via", change.Via,
	)
	return nil
}
