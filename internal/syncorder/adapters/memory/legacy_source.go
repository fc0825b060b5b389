package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

type legacyEntry struct {
	orderID int64
	row     ports.LegacyRow
}

// LegacySource serves legacy per-line rows registered per store.
type LegacySource struct {
	mu      sync.RWMutex
	entries map[int64][]legacyEntry
	fetches int
}

// NewLegacySource constructs an empty source.
func NewLegacySource() *LegacySource {
	return &LegacySource{entries: make(map[int64][]legacyEntry)}
}

// Add registers a row for a store under the given order id. The row itself
// may be malformed; it is stored as given.
func (s *LegacySource) Add(storeID, orderID int64, row ports.LegacyRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[storeID] = append(s.entries[storeID], legacyEntry{orderID: orderID, row: row})
}

// Fetches reports how many pages have been requested.
func (s *LegacySource) Fetches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetches
}

// FetchPage mirrors the postgres source: rows holding an explicit nil order
// or item id are treated as NULL columns and skipped, while rows missing the
// keys entirely are passed on for validation.
func (s *LegacySource) FetchPage(_ context.Context, storeID int64, afterOrderID int64, limit int) (ports.LegacyPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++

	entries := make([]legacyEntry, 0, len(s.entries[storeID]))
	for _, e := range s.entries[storeID] {
		if e.orderID > afterOrderID {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].orderID < entries[j].orderID })

	var page ports.LegacyPage
	seen := 0
	for _, e := range entries {
		if e.orderID != page.LastOrderID {
			if limit > 0 && seen == limit {
				break
			}
			seen++
			page.LastOrderID = e.orderID
		}
		if isNull(e.row, ports.LegacyKeyOrderID) || isNull(e.row, ports.LegacyKeyOrderItemID) {
			page.Skipped++
			continue
		}
		page.Rows = append(page.Rows, e.row)
	}
	return page, nil
}

func isNull(row ports.LegacyRow, key string) bool {
	v, ok := row[key]
	return ok && v == nil
}
