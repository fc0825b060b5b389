package commands

import (
	"context"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

// MarkProcessing moves the order to PROCESSING and counts a new attempt. It
// is the only action that increments attempts. Re-entering PROCESSING still
// counts the attempt but is recorded as NOOP.
func (h *SyncHandler) MarkProcessing(ctx context.Context, cmd MarkProcessingCommand) (ActionResult, error) {
	syncOrder, err := h.resolver.Resolve(ctx, cmd.OrderID)
	if err != nil {
		h.logger.WarnContext(ctx, "cannot mark order processing", "order_id", cmd.OrderID, "error", err)
		return failed(cmd.OrderID, err), err
	}

	outcome := domain.ResultSuccess
	if syncOrder.Status == domain.StatusProcessing {
		outcome = domain.ResultNoop
	}

	next := *syncOrder
	next.Status = domain.StatusProcessing
	next.Attempts++

	return h.transition(ctx, *syncOrder, next, domain.ActionProcessStart, outcome, cmd.Via, nil)
}
