package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	transitionsTotal metric.Int64Counter
	actionDuration   metric.Float64Histogram
	batchPagesTotal  metric.Int64Counter
	batchDuration    metric.Float64Histogram
	sweepItemsTotal  metric.Int64Counter
	transmitTotal    metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.transitionsTotal, err = meter.Int64Counter(
		"sync_transitions_total",
		metric.WithDescription("Sync actions executed, by action and history result"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sync_transitions_total counter: %w", err)
	}

	m.actionDuration, err = meter.Float64Histogram(
		"sync_action_duration_seconds",
		metric.WithDescription("Duration of sync actions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sync_action_duration histogram: %w", err)
	}

	m.batchPagesTotal, err = meter.Int64Counter(
		"sync_batch_pages_total",
		metric.WithDescription("Pages handed to the pipeline by the batch runner"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sync_batch_pages_total counter: %w", err)
	}

	m.batchDuration, err = meter.Float64Histogram(
		"sync_batch_duration_seconds",
		metric.WithDescription("Duration of batch runner invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sync_batch_duration histogram: %w", err)
	}

	m.sweepItemsTotal, err = meter.Int64Counter(
		"sync_sweep_items_total",
		metric.WithDescription("Items handled by requeue and retention sweeps"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sync_sweep_items_total counter: %w", err)
	}

	m.transmitTotal, err = meter.Int64Counter(
		"analytics_transmit_total",
		metric.WithDescription("Order payloads sent to the analytics endpoint"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create analytics_transmit_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordTransition(ctx context.Context, action, result string) {
	m.transitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("result", result),
	))
}

func (m *Metrics) RecordActionDuration(ctx context.Context, action string, durationSeconds float64) {
	m.actionDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("action", action),
	))
}

func (m *Metrics) RecordBatchPage(ctx context.Context, phase string) {
	m.batchPagesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
	))
}

func (m *Metrics) RecordBatchDuration(ctx context.Context, durationSeconds float64) {
	m.batchDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordSweepItem(ctx context.Context, sweep string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.sweepItemsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sweep", sweep),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordTransmit(ctx context.Context, outcome string) {
	m.transmitTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}
