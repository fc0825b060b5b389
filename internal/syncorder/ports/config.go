package ports

import "context"

// Scope identifies the level a configuration value is stored at.
type Scope string

const (
	ScopeDefault Scope = "default"
	ScopeStores  Scope = "stores"
)

// ScopedConfig reads per-store configuration. ok is false when no value is
// stored for the path at the requested scope or its fallback.
type ScopedConfig interface {
	GetValue(ctx context.Context, path string, scope Scope, scopeID int64) (value string, ok bool, err error)
}

// StoreRepository lists the stores known to the host platform.
type StoreRepository interface {
	ListStoreIDs(ctx context.Context) ([]int64, error)
}
