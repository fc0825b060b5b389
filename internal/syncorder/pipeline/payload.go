package pipeline

import (
	"context"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

// Payload is the envelope posted to the analytics endpoint.
type Payload struct {
	RequestID string         `json:"request_id"`
	OrderID   int64          `json:"order_id"`
	StoreID   int64          `json:"store_id"`
	Attempt   int            `json:"attempt"`
	SentAt    time.Time      `json:"sent_at"`
	Data      map[string]any `json:"data"`
}

// PayloadBuilder turns a host order into the analytics data block. Real
// deployments plug in the platform's own builder.
type PayloadBuilder interface {
	Build(ctx context.Context, order domain.Order) (map[string]any, error)
}

// OrderSummaryBuilder sends the order header fields only.
type OrderSummaryBuilder struct{}

func (OrderSummaryBuilder) Build(_ context.Context, order domain.Order) (map[string]any, error) {
	return map[string]any{
		"increment_id": order.IncrementID,
		"state":        order.State,
		"created_at":   order.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}
