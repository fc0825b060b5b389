package commands

import (
	"context"
	"fmt"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

// MarkProcessed records the outcome of a transmission. Only PARTIAL, SYNCED
// and ERROR are accepted. PARTIAL is logged as a QUEUE action because the
// order remains eligible for another sync.
func (h *SyncHandler) MarkProcessed(ctx context.Context, cmd MarkProcessedCommand) (ActionResult, error) {
	if !cmd.ResultStatus.IsProcessedResult() {
		err := fmt.Errorf("%w: %q is not a processed result status", domain.ErrInvalidArgument, cmd.ResultStatus.String())
		return failed(cmd.OrderID, err), err
	}

	syncOrder, err := h.resolver.Resolve(ctx, cmd.OrderID)
	if err != nil {
		h.logger.WarnContext(ctx, "cannot mark order processed", "order_id", cmd.OrderID, "error", err)
		return failed(cmd.OrderID, err), err
	}

	action := domain.ActionProcessEnd
	if cmd.ResultStatus.CanInitiateSync() {
		action = domain.ActionQueue
	}

	if syncOrder.Status == cmd.ResultStatus {
		message := fmt.Sprintf("already marked as %s", cmd.ResultStatus)
		return h.noop(ctx, *syncOrder, action, cmd.Via, cmd.AdditionalInformation, message), nil
	}

	next := *syncOrder
	next.Status = cmd.ResultStatus
	if next.Attempts == 0 {
		next.Attempts = 1
	}

	result, _ := h.transition(ctx, *syncOrder, next, action, domain.ResultSuccess, cmd.Via, cmd.AdditionalInformation)
	return result, nil
}
