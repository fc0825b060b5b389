package commands

import (
	"context"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

// Queue makes an order eligible for the next batch run. An order that can
// already initiate a sync is left alone and gets a NOOP row. Persistence
// failures are reported through the result only.
func (h *SyncHandler) Queue(ctx context.Context, cmd QueueCommand) (ActionResult, error) {
	syncOrder, err := h.resolver.Resolve(ctx, cmd.OrderID)
	if err != nil {
		h.logger.WarnContext(ctx, "cannot queue order", "order_id", cmd.OrderID, "error", err)
		return failed(cmd.OrderID, err), err
	}

	if syncOrder.Status.CanInitiateSync() {
		return h.noop(ctx, *syncOrder, domain.ActionQueue, cmd.Via, cmd.AdditionalInformation, "already queued"), nil
	}

	next := *syncOrder
	next.Status = domain.StatusQueued
	if syncOrder.Attempts > 0 {
		next.Status = domain.StatusRetry
	}

	result, _ := h.transition(ctx, *syncOrder, next, domain.ActionQueue, domain.ResultSuccess, cmd.Via, cmd.AdditionalInformation)
	return result, nil
}

func failed(orderID int64, err error) ActionResult {
	result := ActionResult{}
	result.addMessage("order %d: %v", orderID, err)
	return result
}
