package ports

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// OrderLookup resolves host commerce orders.
type OrderLookup interface {
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
}

// SyncOrderRepository persists SyncOrder records. Implementations may cache
// lookups; ClearCache drops anything cached for the current process.
type SyncOrderRepository interface {
	GetByOrderID(ctx context.Context, orderID int64) (*domain.SyncOrder, error)
	GetByID(ctx context.Context, id int64) (*domain.SyncOrder, error)
	Save(ctx context.Context, syncOrder domain.SyncOrder) (*domain.SyncOrder, error)
	Delete(ctx context.Context, syncOrder domain.SyncOrder) error
	List(ctx context.Context, criteria SearchCriteria) (SyncOrderList, error)
	ClearCache()
}

// HistoryRepository persists the append-only SyncOrderHistory trail.
type HistoryRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.History, error)
	Save(ctx context.Context, history domain.History) (*domain.History, error)
	Delete(ctx context.Context, history domain.History) error
	List(ctx context.Context, criteria HistoryCriteria) (HistoryList, error)
	CreateFromSyncOrder(
		ctx context.Context,
		syncOrder domain.SyncOrder,
		action domain.Action,
		via string,
		result domain.Result,
		info map[string]any,
	) (*domain.History, error)
	ClearCache()
}

// SearchCriteria narrows SyncOrder listings. Page numbering is 1-based.
// AfterEntityID switches to keyset pagination and ignores CurrentPage.
type SearchCriteria struct {
	OrderIDs            []int64
	SyncStatuses        []domain.Status
	StoreIDs            []int64
	ExcludedOrderStates map[int64][]string
	LastActivityBefore  *time.Time
	AfterEntityID       int64
	CurrentPage         int
	PageSize            int
}

// SyncOrderList is one page of SyncOrders plus the unpaged total.
type SyncOrderList struct {
	Items      []domain.SyncOrder
	TotalCount int
}

// HistoryCriteria narrows history listings. SyncStatus filters on the current
// status of the owning SyncOrder.
type HistoryCriteria struct {
	SyncOrderID   int64
	SyncStatus    *domain.Status
	StoreIDs      []int64
	Before        *time.Time
	AfterEntityID int64
	Limit         int
	NewestFirst   bool
}

// HistoryList is one page of history rows plus the unpaged total.
type HistoryList struct {
	Items      []domain.History
	TotalCount int
}
