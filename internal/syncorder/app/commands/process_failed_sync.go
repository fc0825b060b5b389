package commands

import (
	"context"
	"fmt"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

// ProcessFailedSync decides whether a failed order gets another attempt or is
// marked ERROR. The order is first brought into PROCESSING so the failed
// attempt is counted, then its attempts are compared with the store's limit.
func (h *SyncHandler) ProcessFailedSync(ctx context.Context, cmd ProcessFailedSyncCommand) (ActionResult, error) {
	if !cmd.Order.HasIdentity() {
		err := fmt.Errorf("%w: order has no identity", domain.ErrOrderInvalid)
		return failed(cmd.Order.ID, err), err
	}

	syncOrder, err := h.resolver.Resolve(ctx, cmd.Order.ID)
	if err != nil {
		return failed(cmd.Order.ID, err), err
	}

	// At most one extra resolution after marking the order processing.
	if syncOrder.IsVirtual() || syncOrder.Status.CanInitiateSync() {
		result, err := h.MarkProcessing(ctx, MarkProcessingCommand{OrderID: cmd.Order.ID, Via: cmd.Via})
		if err != nil {
			return result, err
		}
		h.syncOrders.ClearCache()
		h.history.ClearCache()

		syncOrder, err = h.resolver.Resolve(ctx, cmd.Order.ID)
		if err != nil {
			return failed(cmd.Order.ID, err), err
		}
	}

	maxAttempts := h.limits.MaxAttempts(ctx, syncOrder.StoreID)
	if syncOrder.Attempts < maxAttempts {
		h.logger.InfoContext(ctx, "retrying failed sync",
			"order_id", syncOrder.OrderID,
			"store_id", syncOrder.StoreID,
			"attempts", syncOrder.Attempts,
			"max_attempts", maxAttempts,
		)
		return h.Queue(ctx, QueueCommand{
			OrderID:               cmd.Order.ID,
			Via:                   cmd.Via,
			AdditionalInformation: cmd.AdditionalInformation,
		})
	}

	h.logger.WarnContext(ctx, "sync attempts exhausted",
		"order_id", syncOrder.OrderID,
		"store_id", syncOrder.StoreID,
		"attempts", syncOrder.Attempts,
		"max_attempts", maxAttempts,
	)
	return h.MarkProcessed(ctx, MarkProcessedCommand{
		OrderID:               cmd.Order.ID,
		ResultStatus:          domain.StatusError,
		Via:                   cmd.Via,
		AdditionalInformation: cmd.AdditionalInformation,
	})
}
