package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dejobratic/ordersync/internal/syncorder/metrics"
	"github.com/dejobratic/ordersync/internal/telemetry"
)

// ErrUnavailable is returned while the circuit breaker refuses calls.
var ErrUnavailable = errors.New("analytics endpoint unavailable")

// Transmitter delivers payloads to the analytics endpoint.
type Transmitter interface {
	Send(ctx context.Context, payload Payload) error
	// Available reports whether Send is currently worth attempting.
	Available() bool
}

// StatusError is a non-2xx answer from the endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analytics endpoint returned %d: %s", e.Code, e.Body)
}

// Retryable reports whether the request may succeed when repeated.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// TransmitterConfig configures an HTTPTransmitter.
type TransmitterConfig struct {
	Endpoint         string
	APIKey           string
	UserAgent        string
	Timeout          time.Duration
	MaxRetries       uint
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// HTTPTransmitter posts payloads as JSON, retrying throttled and failed
// requests behind a circuit breaker.
type HTTPTransmitter struct {
	cfg     TransmitterConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	backOff func() backoff.BackOff
	metrics *metrics.Metrics
}

// TransmitterOption configures an HTTPTransmitter.
type TransmitterOption func(*HTTPTransmitter)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) TransmitterOption {
	return func(t *HTTPTransmitter) { t.client = client }
}

// WithBackOff replaces the exponential retry schedule.
func WithBackOff(factory func() backoff.BackOff) TransmitterOption {
	return func(t *HTTPTransmitter) { t.backOff = factory }
}

// WithTransmitMetrics counts transmissions by outcome.
func WithTransmitMetrics(m *metrics.Metrics) TransmitterOption {
	return func(t *HTTPTransmitter) { t.metrics = m }
}

// NewHTTPTransmitter constructs an HTTPTransmitter.
func NewHTTPTransmitter(cfg TransmitterConfig, opts ...TransmitterOption) *HTTPTransmitter {
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	t := &HTTPTransmitter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	t.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "analytics",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return !statusErr.Retryable()
			}
			return err == nil
		},
	})

	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Available is false while the breaker is open.
func (t *HTTPTransmitter) Available() bool {
	return t.breaker.State() != gobreaker.StateOpen
}

// Send posts one payload. Client errors are not retried.
func (t *HTTPTransmitter) Send(ctx context.Context, payload Payload) error {
	ctx, span := telemetry.StartSpan(ctx, "AnalyticsTransmitter.Send")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		telemetry.OrderIDKey.Int64(payload.OrderID),
		telemetry.StoreIDKey.Int64(payload.StoreID),
		attribute.String("request.id", payload.RequestID),
		attribute.Int("sync.attempt", payload.Attempt),
	)

	body, err := json.Marshal(payload)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return fmt.Errorf("encode payload: %w", err)
	}

	operation := func() (struct{}, error) {
		_, err := t.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, t.post(ctx, payload.RequestID, body)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %w", ErrUnavailable, err))
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(t.backOff()),
		backoff.WithMaxTries(t.cfg.MaxRetries+1),
	)

	t.record(ctx, err)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}
	telemetry.SetSpanSuccess(span)
	return nil
}

func (t *HTTPTransmitter) post(ctx context.Context, requestID string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if t.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", t.cfg.UserAgent)
	}
	if t.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := &StatusError{Code: resp.StatusCode, Body: string(snippet)}
	if resp.StatusCode == http.StatusTooManyRequests {
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
			return errors.Join(statusErr, backoff.RetryAfter(seconds))
		}
	}
	return statusErr
}

func (t *HTTPTransmitter) record(ctx context.Context, err error) {
	if t.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, ErrUnavailable):
		outcome = "unavailable"
	case err != nil:
		outcome = "error"
	}
	t.metrics.RecordTransmit(ctx, outcome)
}
