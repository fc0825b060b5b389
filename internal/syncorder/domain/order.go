package domain

import "time"

// Order is the read-only view of a host commerce order that sync needs.
type Order struct {
	ID          int64     `json:"id"`
	StoreID     int64     `json:"store_id"`
	IncrementID string    `json:"increment_id"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasIdentity reports whether the order has been persisted by the host platform.
func (o Order) HasIdentity() bool {
	return o.ID > 0
}
