package memory

import (
	"context"
	"sync"

	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

type configKey struct {
	path    string
	scope   ports.Scope
	scopeID int64
}

// ScopedConfig holds configuration values in a map. Store-scoped lookups fall
// back to the default scope.
type ScopedConfig struct {
	mu     sync.RWMutex
	values map[configKey]string
}

// NewScopedConfig constructs an empty configuration.
func NewScopedConfig() *ScopedConfig {
	return &ScopedConfig{values: make(map[configKey]string)}
}

// SetDefault stores a value at the default scope.
func (c *ScopedConfig) SetDefault(path, value string) {
	c.Set(path, ports.ScopeDefault, 0, value)
}

// SetStore stores a value for one store.
func (c *ScopedConfig) SetStore(path string, storeID int64, value string) {
	c.Set(path, ports.ScopeStores, storeID, value)
}

func (c *ScopedConfig) Set(path string, scope ports.Scope, scopeID int64, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[configKey{path: path, scope: scope, scopeID: scopeID}] = value
}

func (c *ScopedConfig) GetValue(_ context.Context, path string, scope ports.Scope, scopeID int64) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if scope == ports.ScopeStores {
		if value, ok := c.values[configKey{path: path, scope: scope, scopeID: scopeID}]; ok {
			return value, true, nil
		}
	}
	value, ok := c.values[configKey{path: path, scope: ports.ScopeDefault}]
	return value, ok, nil
}

// StoreRepository lists a fixed set of store ids.
type StoreRepository struct {
	ids []int64
}

// NewStoreRepository constructs a repository for the given stores.
func NewStoreRepository(ids ...int64) *StoreRepository {
	return &StoreRepository{ids: ids}
}

func (r *StoreRepository) ListStoreIDs(_ context.Context) ([]int64, error) {
	out := make([]int64, len(r.ids))
	copy(out, r.ids)
	return out, nil
}
