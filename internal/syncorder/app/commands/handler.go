package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// QueueCommand puts an order in line for synchronization.
type QueueCommand struct {
	OrderID               int64
	Via                   string
	AdditionalInformation map[string]any
}

// MarkProcessingCommand records the start of a transmission attempt.
type MarkProcessingCommand struct {
	OrderID int64
	Via     string
}

// MarkProcessedCommand records the outcome of a transmission attempt.
type MarkProcessedCommand struct {
	OrderID               int64
	ResultStatus          domain.Status
	Via                   string
	AdditionalInformation map[string]any
}

// ProcessFailedSyncCommand decides between retry and permanent failure after
// a transmission attempt failed.
type ProcessFailedSyncCommand struct {
	Order                 domain.Order
	Via                   string
	AdditionalInformation map[string]any
}

// Handler executes the sync state machine actions.
type Handler interface {
	Queue(ctx context.Context, cmd QueueCommand) (ActionResult, error)
	MarkProcessing(ctx context.Context, cmd MarkProcessingCommand) (ActionResult, error)
	MarkProcessed(ctx context.Context, cmd MarkProcessedCommand) (ActionResult, error)
	ProcessFailedSync(ctx context.Context, cmd ProcessFailedSyncCommand) (ActionResult, error)
}

// AttemptLimiter supplies the per-store retry budget.
type AttemptLimiter interface {
	MaxAttempts(ctx context.Context, storeID int64) int
}

// SyncHandler is the Handler backed by the sync repositories.
type SyncHandler struct {
	resolver   *Resolver
	syncOrders ports.SyncOrderRepository
	history    ports.HistoryRepository
	events     ports.EventBus
	limits     AttemptLimiter
	logger     *slog.Logger
	now        func() time.Time
}

// NewSyncHandler wires the action handler.
func NewSyncHandler(
	orders ports.OrderLookup,
	syncOrders ports.SyncOrderRepository,
	history ports.HistoryRepository,
	events ports.EventBus,
	limits AttemptLimiter,
	logger *slog.Logger,
) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{
		resolver:   NewResolver(orders, syncOrders),
		syncOrders: syncOrders,
		history:    history,
		events:     events,
		limits:     limits,
		logger:     logger,
		now:        time.Now,
	}
}

// transition persists next as the new state of syncOrder and writes the audit
// row with outcome. Persistence failures are reported through the result, with
// an ERROR row when the record already exists.
func (h *SyncHandler) transition(
	ctx context.Context,
	syncOrder domain.SyncOrder,
	next domain.SyncOrder,
	action domain.Action,
	outcome domain.Result,
	via string,
	extra map[string]any,
) (ActionResult, error) {
	info := domain.TransitionInfo(syncOrder.Status, next.Status, extra)
	result := ActionResult{SyncOrder: &syncOrder}

	saved, err := h.syncOrders.Save(ctx, next)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save sync order",
			"order_id", syncOrder.OrderID,
			"store_id", syncOrder.StoreID,
			"original_status", syncOrder.Status.String(),
			"new_status", next.Status.String(),
			"error", err,
		)
		result.addMessage("order %d: failed to save sync order: %v", syncOrder.OrderID, err)
		if !syncOrder.IsVirtual() {
			info["error"] = err.Error()
			result.History = h.record(ctx, &result, syncOrder, action, via, domain.ResultError, info)
		}
		return result, fmt.Errorf("%w: save sync order for order %d: %w", domain.ErrPersistence, syncOrder.OrderID, err)
	}

	result.Success = true
	result.SyncOrder = saved
	result.History = h.record(ctx, &result, *saved, action, via, outcome, info)

	h.logger.InfoContext(ctx, "sync status changed",
		"order_id", saved.OrderID,
		"store_id", saved.StoreID,
		"sync_order_id", saved.EntityID,
		"original_status", syncOrder.Status.String(),
		"new_status", saved.Status.String(),
		"attempts", saved.Attempts,
		"via", via,
	)

	if syncOrder.Status != saved.Status {
		h.publish(ctx, syncOrder.Status, *saved, via)
	}
	return result, nil
}

// noop writes a NOOP row for an action that found nothing to change.
func (h *SyncHandler) noop(
	ctx context.Context,
	syncOrder domain.SyncOrder,
	action domain.Action,
	via string,
	extra map[string]any,
	message string,
) ActionResult {
	result := ActionResult{SyncOrder: &syncOrder}
	result.addMessage("order %d: %s", syncOrder.OrderID, message)
	if syncOrder.IsVirtual() {
		return result
	}
	info := domain.TransitionInfo(syncOrder.Status, syncOrder.Status, extra)
	result.History = h.record(ctx, &result, syncOrder, action, via, domain.ResultNoop, info)
	return result
}

func (h *SyncHandler) record(
	ctx context.Context,
	result *ActionResult,
	syncOrder domain.SyncOrder,
	action domain.Action,
	via string,
	outcome domain.Result,
	info map[string]any,
) *domain.History {
	row, err := h.history.CreateFromSyncOrder(ctx, syncOrder, action, via, outcome, info)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to write sync history",
			"order_id", syncOrder.OrderID,
			"sync_order_id", syncOrder.EntityID,
			"action", string(action),
			"result", string(outcome),
			"error", err,
		)
		result.addMessage("order %d: failed to write history: %v", syncOrder.OrderID, err)
		return nil
	}
	return row
}

func (h *SyncHandler) publish(ctx context.Context, original domain.Status, saved domain.SyncOrder, via string) {
	if h.events == nil {
		return
	}
	err := h.events.PublishSyncStatusChanged(ctx, ports.StatusChange{
		OrderID:        saved.OrderID,
		StoreID:        saved.StoreID,
		SyncOrderID:    saved.EntityID,
		OriginalStatus: original,
		NewStatus:      saved.Status,
		Via:            via,
		OccurredAt:     h.now().UTC(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to publish sync status change",
			"order_id", saved.OrderID,
			"new_status", saved.Status.String(),
			"error", err,
		)
	}
}
