// Package settings resolves per-store sync settings from scoped configuration,
// falling back to the process-wide defaults.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// Scoped configuration paths.
const (
	PathEnabled               = "analytics/general/enabled"
	PathMaxAttempts           = "analytics/sync/max_attempts"
	PathStuckThresholdMinutes = "analytics/sync/stuck_threshold_minutes"
	PathRetentionSyncedDays   = "analytics/sync/history_retention_synced_days"
	PathRetentionErrorDays    = "analytics/sync/history_retention_error_days"
	PathExcludedOrderStates   = "analytics/sync/excluded_order_states"
)

// Defaults are used when neither store nor default scope carries a value.
type Defaults struct {
	MaxAttempts                int
	StuckThresholdMinutes      int
	HistoryRetentionSyncedDays int
	HistoryRetentionErrorDays  int
	EnabledByDefault           bool
}

// Reader answers sync setting questions for a store.
type Reader struct {
	config   ports.ScopedConfig
	stores   ports.StoreRepository
	defaults Defaults
	logger   *slog.Logger
}

// NewReader constructs a Reader.
func NewReader(config ports.ScopedConfig, stores ports.StoreRepository, defaults Defaults, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{config: config, stores: stores, defaults: defaults, logger: logger}
}

// MaxAttempts returns how many processing attempts an order gets before it is
// marked ERROR. Unset or invalid values fall back to the default, and the
// result is never below 1.
func (r *Reader) MaxAttempts(ctx context.Context, storeID int64) int {
	fallback := r.defaults.MaxAttempts
	if fallback < 1 {
		fallback = 1
	}
	value, ok := r.intValue(ctx, PathMaxAttempts, storeID)
	if !ok || value < 1 {
		return fallback
	}
	return value
}

// StuckThresholdMinutes returns the default reclamation threshold. The value
// is returned as configured, validation is the caller's job.
func (r *Reader) StuckThresholdMinutes(ctx context.Context) int {
	value, ok := r.intValue(ctx, PathStuckThresholdMinutes, 0)
	if !ok {
		return r.defaults.StuckThresholdMinutes
	}
	return value
}

// RetentionDays returns the history retention for a terminal status. Zero
// means retention is disabled for that status.
func (r *Reader) RetentionDays(ctx context.Context, status domain.Status) (int, error) {
	var path string
	var fallback int
	switch status {
	case domain.StatusSynced:
		path, fallback = PathRetentionSyncedDays, r.defaults.HistoryRetentionSyncedDays
	case domain.StatusError:
		path, fallback = PathRetentionErrorDays, r.defaults.HistoryRetentionErrorDays
	default:
		return 0, fmt.Errorf("%w: no retention for status %s", domain.ErrInvalidArgument, status)
	}

	value, ok := r.intValue(ctx, path, 0)
	if !ok {
		return fallback, nil
	}
	if value < 0 {
		return 0, nil
	}
	return value, nil
}

// ExcludedOrderStates returns the host order states whose orders are never
// handed to the pipeline for a store.
func (r *Reader) ExcludedOrderStates(ctx context.Context, storeID int64) ([]string, error) {
	value, ok, err := r.config.GetValue(ctx, PathExcludedOrderStates, ports.ScopeStores, storeID)
	if err != nil {
		return nil, fmt.Errorf("read excluded order states: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var states []string
	for _, part := range strings.Split(value, ",") {
		if s := strings.TrimSpace(part); s != "" {
			states = append(states, s)
		}
	}
	return states, nil
}

// IsSyncEnabled reports whether a store sends orders to analytics.
func (r *Reader) IsSyncEnabled(ctx context.Context, storeID int64) (bool, error) {
	value, ok, err := r.config.GetValue(ctx, PathEnabled, ports.ScopeStores, storeID)
	if err != nil {
		return false, fmt.Errorf("read enabled flag: %w", err)
	}
	if !ok {
		return r.defaults.EnabledByDefault, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// SyncEnabledStoreIDs lists every store with sync enabled.
func (r *Reader) SyncEnabledStoreIDs(ctx context.Context) ([]int64, error) {
	ids, err := r.stores.ListStoreIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	var enabled []int64
	for _, id := range ids {
		ok, err := r.IsSyncEnabled(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			enabled = append(enabled, id)
		}
	}
	return enabled, nil
}

func (r *Reader) intValue(ctx context.Context, path string, storeID int64) (int, bool) {
	scope := ports.ScopeDefault
	if storeID > 0 {
		scope = ports.ScopeStores
	}
	raw, ok, err := r.config.GetValue(ctx, path, scope, storeID)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to read scoped config, using default",
			"path", path,
			"store_id", storeID,
			"error", err,
		)
		return 0, false
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, false
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		r.logger.WarnContext(ctx, "invalid integer in scoped config, using default",
			"path", path,
			"store_id", storeID,
			"value", raw,
		)
		return 0, false
	}
	return value, true
}
