package services

import (
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/metrics"
)

const defaultPageSize = 200

type options struct {
	metrics  *metrics.Metrics
	clock    func() time.Time
	pageSize int
}

// Option configures a sweep service.
type Option func(*options)

// WithMetrics records per-item sweep outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock overrides the time source used for thresholds.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithPageSize sets how many records are read per query.
func WithPageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

func newOptions(opts []Option) options {
	o := options{clock: time.Now, pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
