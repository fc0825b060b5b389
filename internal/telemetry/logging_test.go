package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelWarn)

	logger.InfoContext(context.Background(), "batch run completed")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}

	logger.WarnContext(context.Background(), "history retention disabled")
	if buf.Len() == 0 {
		t.Error("expected warn to be logged")
	}
}

func TestLoggerAddsContextAttributes(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)))
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelInfo)

	ctx, span := StartSpan(WithRunID(context.Background(), "run-1"), "Runner.Run")
	defer span.End()

	logger.InfoContext(ctx, "phase completed", slog.String("phase", "RETRY"))
	entry := decodeLine(t, &buf)

	if entry["trace_id"] != TraceID(ctx) {
		t.Errorf("expected trace_id %s, got %v", TraceID(ctx), entry["trace_id"])
	}
	if entry["span_id"] != SpanID(ctx) {
		t.Errorf("expected span_id %s, got %v", SpanID(ctx), entry["span_id"])
	}
	if entry["run_id"] != "run-1" {
		t.Errorf("expected run_id run-1, got %v", entry["run_id"])
	}
	if entry["phase"] != "RETRY" {
		t.Errorf("expected phase RETRY, got %v", entry["phase"])
	}
}

func TestLoggerWithoutContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, slog.LevelInfo).Info("sync status changed")
	entry := decodeLine(t, &buf)

	for _, key := range []string{"trace_id", "span_id", "run_id"} {
		if _, ok := entry[key]; ok {
			t.Errorf("expected no %s, got %v", key, entry[key])
		}
	}
}

func TestLoggerKeepsGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelInfo).
		With(slog.String("component", "runner")).
		WithGroup("order").
		With(slog.Int64("id", 100))

	ctx := WithRunID(context.Background(), "run-2")
	logger.InfoContext(ctx, "queued", slog.String("status", "QUEUED"))
	entry := decodeLine(t, &buf)

	if entry["component"] != "runner" {
		t.Errorf("expected top-level component, got %v", entry["component"])
	}
	if entry["run_id"] != "run-2" {
		t.Errorf("expected top-level run_id, got %v", entry["run_id"])
	}
	group, ok := entry["order"].(map[string]any)
	if !ok {
		t.Fatalf("expected order group, got %v", entry["order"])
	}
	if group["id"] != float64(100) {
		t.Errorf("expected order.id 100, got %v", group["id"])
	}
	if group["status"] != "QUEUED" {
		t.Errorf("expected order.status QUEUED, got %v", group["status"])
	}
}

func TestRunIDRoundTrip(t *testing.T) {
	if got := RunID(context.Background()); got != "" {
		t.Errorf("expected empty run id, got %q", got)
	}
	if got := RunID(WithRunID(context.Background(), "abc")); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
}
