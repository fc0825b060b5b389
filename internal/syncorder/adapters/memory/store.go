package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

// Store is an in-memory stand-in for the sync tables and the host order
// table, useful for local development and tests. The repositories it hands
// out share one lock so list queries can join across them.
type Store struct {
	mu sync.RWMutex

	orders     map[int64]domain.Order
	syncOrders map[int64]domain.SyncOrder
	history    map[int64]domain.History

	nextSyncOrderID int64
	nextHistoryID   int64

	clock func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// NewStore constructs an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		orders:     make(map[int64]domain.Order),
		syncOrders: make(map[int64]domain.SyncOrder),
		history:    make(map[int64]domain.History),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Orders returns the host order lookup backed by this store.
func (s *Store) Orders() *OrderLookup {
	return &OrderLookup{store: s}
}

// SyncOrders returns the SyncOrder repository backed by this store.
func (s *Store) SyncOrders() *SyncOrderRepository {
	return &SyncOrderRepository{store: s}
}

// History returns the history repository backed by this store.
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{store: s}
}

func (s *Store) now() time.Time {
	return s.clock().UTC()
}

// lastActivity returns the newest history timestamp of a sync order, falling
// back to its update time. Caller must hold the lock.
func (s *Store) lastActivity(so domain.SyncOrder) time.Time {
	latest := so.UpdatedAt
	found := false
	for _, h := range s.history {
		if h.SyncOrderID != so.EntityID {
			continue
		}
		if !found || h.Timestamp.After(latest) {
			latest = h.Timestamp
			found = true
		}
	}
	return latest
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func containsInt64(values []int64, v int64) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsStatus(values []domain.Status, v domain.Status) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}
