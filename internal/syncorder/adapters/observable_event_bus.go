package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/ordersync/internal/events"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
	"github.com/dejobratic/ordersync/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *events.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *events.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishSyncStatusChanged(ctx context.Context, change ports.StatusChange) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishSyncStatusChanged")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		telemetry.OrderIDKey.Int64(change.OrderID),
		telemetry.StoreIDKey.Int64(change.StoreID),
		attribute.String("event.type", events.EventSyncStatusChanged),
		attribute.String("sync.original_status", change.OriginalStatus.String()),
		attribute.String("sync.new_status", change.NewStatus.String()),
	)

	start := time.Now()
	err := e.bus.PublishSyncStatusChanged(ctx, change)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, events.EventSyncStatusChanged, duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
