package ports

import (
	"context"
	"time"
)

// LegacyRow is one raw per-line record from the legacy flag table. Values are
// kept untyped; validation happens when rows are aggregated.
type LegacyRow map[string]any

// Keys a LegacyRow is expected to carry.
const (
	LegacyKeyOrderID     = "order_id"
	LegacyKeyOrderItemID = "order_item_id"
	LegacyKeySend        = "send"
)

// LegacyPage is one page of legacy rows.
type LegacyPage struct {
	Rows []LegacyRow
	// LastOrderID is the highest order id scanned for the page, including
	// orders whose rows were all skipped. Zero when no orders remain.
	LastOrderID int64
	// Skipped counts rows the source dropped for a NULL order or item id.
	Skipped int
}

// Done reports whether the store has no orders after the requested one.
func (p LegacyPage) Done() bool {
	return p.LastOrderID == 0
}

// LegacySource streams legacy rows per store. Rows are returned for at most
// limit orders with order_id greater than afterOrderID, so every order's lines
// arrive in one page.
type LegacySource interface {
	FetchPage(ctx context.Context, storeID int64, afterOrderID int64, limit int) (LegacyPage, error)
}

// Checkpoint records migration progress for a key.
type Checkpoint struct {
	Key         string
	LastOrderID int64
	Completed   bool
	UpdatedAt   time.Time
}

// CheckpointStore persists migration progress so runs can resume.
type CheckpointStore interface {
	Get(ctx context.Context, key string) (*Checkpoint, error)
	Save(ctx context.Context, checkpoint Checkpoint) error
}
