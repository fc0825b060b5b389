package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/metrics"
	"github.com/dejobratic/ordersync/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableHandler struct {
	handler Handler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableHandler(handler Handler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableHandler {
	return &ObservableHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableHandler) Queue(ctx context.Context, cmd QueueCommand) (ActionResult, error) {
	return o.observe(ctx, "queue", cmd.OrderID, cmd.Via, func(ctx context.Context) (ActionResult, error) {
		return o.handler.Queue(ctx, cmd)
	})
}

func (o *ObservableHandler) MarkProcessing(ctx context.Context, cmd MarkProcessingCommand) (ActionResult, error) {
	return o.observe(ctx, "mark_processing", cmd.OrderID, cmd.Via, func(ctx context.Context) (ActionResult, error) {
		return o.handler.MarkProcessing(ctx, cmd)
	})
}

func (o *ObservableHandler) MarkProcessed(ctx context.Context, cmd MarkProcessedCommand) (ActionResult, error) {
	return o.observe(ctx, "mark_processed", cmd.OrderID, cmd.Via, func(ctx context.Context) (ActionResult, error) {
		return o.handler.MarkProcessed(ctx, cmd)
	})
}

func (o *ObservableHandler) ProcessFailedSync(ctx context.Context, cmd ProcessFailedSyncCommand) (ActionResult, error) {
	return o.observe(ctx, "process_failed_sync", cmd.Order.ID, cmd.Via, func(ctx context.Context) (ActionResult, error) {
		return o.handler.ProcessFailedSync(ctx, cmd)
	})
}

func (o *ObservableHandler) observe(
	ctx context.Context,
	action string,
	orderID int64,
	via string,
	fn func(ctx context.Context) (ActionResult, error),
) (ActionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SyncHandler."+action)
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("sync.action", action),
		telemetry.OrderIDKey.Int64(orderID),
		telemetry.ViaKey.String(via),
	)

	start := time.Now()
	result, err := fn(ctx)
	o.metrics.RecordActionDuration(ctx, action, time.Since(start).Seconds())
	o.metrics.RecordTransition(ctx, action, string(result.Outcome()))

	if result.SyncOrder != nil {
		telemetry.AddSpanAttributes(span,
			telemetry.SyncOrderIDKey.Int64(result.SyncOrder.EntityID),
			attribute.String("sync_order.status", result.SyncOrder.Status.String()),
			attribute.Int("sync_order.attempts", result.SyncOrder.Attempts),
		)
	}

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "sync action failed",
			"action", action,
			"order_id", orderID,
			"via", via,
			"error", err,
		)
		return result, err
	}

	telemetry.AddSpanAttributes(span, attribute.Bool("sync.success", result.Success))
	telemetry.SetSpanSuccess(span)
	return result, nil
}
