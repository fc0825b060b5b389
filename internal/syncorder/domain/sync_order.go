package domain

import (
	"fmt"
	"time"
)

// SyncOrder tracks the analytics synchronization state of one order.
type SyncOrder struct {
	EntityID  int64     `json:"entity_id"`
	OrderID   int64     `json:"order_id"`
	StoreID   int64     `json:"store_id"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewVirtualSyncOrder builds an unsaved record for an order that has never been tracked.
func NewVirtualSyncOrder(order Order) *SyncOrder {
	return &SyncOrder{
		OrderID: order.ID,
		StoreID: order.StoreID,
		Status:  StatusUnset,
	}
}

// IsVirtual reports whether the record has not been persisted yet.
func (s SyncOrder) IsVirtual() bool {
	return s.EntityID == 0
}

// AssignOrder sets the order id. Once set it cannot change.
func (s *SyncOrder) AssignOrder(orderID int64) error {
	if s.OrderID != 0 && s.OrderID != orderID {
		return fmt.Errorf("%w: sync order %d already belongs to order %d", ErrInvalidArgument, s.EntityID, s.OrderID)
	}
	s.OrderID = orderID
	return nil
}

// Validate checks the invariants a record must satisfy before it is saved.
func (s SyncOrder) Validate() error {
	if s.OrderID <= 0 {
		return fmt.Errorf("%w: order_id is required", ErrInvalidArgument)
	}
	if s.Attempts < 0 {
		return fmt.Errorf("%w: attempts must not be negative", ErrInvalidArgument)
	}
	if s.Status == StatusUnknown {
		return fmt.Errorf("%w: status is unknown", ErrInvalidArgument)
	}
	return nil
}
