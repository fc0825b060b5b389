package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type runIDKey struct{}

// WithRunID tags ctx so every log line written with it carries run_id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the run id stored in ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// NewLogger writes JSON to stdout.
func NewLogger(level slog.Level) *slog.Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo writes JSON to w. Records logged with a context carry its
// trace_id, span_id and run_id.
func NewLoggerTo(w io.Writer, level slog.Level) *slog.Logger {
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(&contextHandler{base: base, attrs: [][]slog.Attr{nil}})
}

// contextHandler defers WithAttrs and WithGroup until Handle so the context
// attributes land at the top level rather than inside an open group.
type contextHandler struct {
	base   slog.Handler
	groups []string
	attrs  [][]slog.Attr
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := h.base

	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}

	// attrs[i] was added after groups[:i] were opened.
	for i, group := range h.groups {
		if len(h.attrs[i]) > 0 {
			handler = handler.WithAttrs(h.attrs[i])
		}
		handler = handler.WithGroup(group)
	}
	if last := h.attrs[len(h.groups)]; len(last) > 0 {
		handler = handler.WithAttrs(last)
	}

	return handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	level := len(next.groups)
	next.attrs[level] = append(next.attrs[level], attrs...)
	return next
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	next.attrs = append(next.attrs, nil)
	return next
}

func (h *contextHandler) clone() *contextHandler {
	attrs := h.attrs
	if attrs == nil {
		attrs = [][]slog.Attr{nil}
	}
	out := &contextHandler{
		base:   h.base,
		groups: append([]string(nil), h.groups...),
		attrs:  make([][]slog.Attr, len(attrs)),
	}
	for i, level := range attrs {
		out.attrs[i] = append([]slog.Attr(nil), level...)
	}
	return out
}

func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if traceID := TraceID(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	if spanID := SpanID(ctx); spanID != "" {
		attrs = append(attrs, slog.String("span_id", spanID))
	}
	if runID := RunID(ctx); runID != "" {
		attrs = append(attrs, slog.String("run_id", runID))
	}
	return attrs
}
