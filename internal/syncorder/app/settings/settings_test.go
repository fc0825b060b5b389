package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejobratic/ordersync/internal/syncorder/adapters/memory"
	"github.com/dejobratic/ordersync/internal/syncorder/app/settings"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

func newReader(cfg *memory.ScopedConfig, defaults settings.Defaults, stores ...int64) *settings.Reader {
	return settings.NewReader(cfg, memory.NewStoreRepository(stores...), defaults, nil)
}

func TestMaxAttempts(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to one when nothing is configured", func(t *testing.T) {
		r := newReader(memory.NewScopedConfig(), settings.Defaults{})
		assert.Equal(t, 1, r.MaxAttempts(ctx, 1))
	})

	t.Run("store value overrides default scope", func(t *testing.T) {
		cfg := memory.NewScopedConfig()
		cfg.SetDefault(settings.PathMaxAttempts, "2")
		cfg.SetStore(settings.PathMaxAttempts, 7, "5")
		r := newReader(cfg, settings.Defaults{MaxAttempts: 1})

		assert.Equal(t, 5, r.MaxAttempts(ctx, 7))
		assert.Equal(t, 2, r.MaxAttempts(ctx, 8))
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		cfg := memory.NewScopedConfig()
		cfg.SetStore(settings.PathMaxAttempts, 1, "many")
		cfg.SetStore(settings.PathMaxAttempts, 2, "0")
		r := newReader(cfg, settings.Defaults{MaxAttempts: 3})

		assert.Equal(t, 3, r.MaxAttempts(ctx, 1))
		assert.Equal(t, 3, r.MaxAttempts(ctx, 2))
	})
}

func TestRetentionDays(t *testing.T) {
	ctx := context.Background()
	cfg := memory.NewScopedConfig()
	cfg.SetDefault(settings.PathRetentionSyncedDays, "30")
	r := newReader(cfg, settings.Defaults{HistoryRetentionErrorDays: 90})

	days, err := r.RetentionDays(ctx, domain.StatusSynced)
	require.NoError(t, err)
	assert.Equal(t, 30, days)

	days, err = r.RetentionDays(ctx, domain.StatusError)
	require.NoError(t, err)
	assert.Equal(t, 90, days)

	_, err = r.RetentionDays(ctx, domain.StatusQueued)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSyncEnabledStoreIDs(t *testing.T) {
	ctx := context.Background()
	cfg := memory.NewScopedConfig()
	cfg.SetStore(settings.PathEnabled, 1, "1")
	cfg.SetStore(settings.PathEnabled, 2, "0")
	cfg.SetStore(settings.PathEnabled, 3, "true")

	r := newReader(cfg, settings.Defaults{}, 1, 2, 3, 4)
	ids, err := r.SyncEnabledStoreIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	r = newReader(cfg, settings.Defaults{EnabledByDefault: true}, 1, 2, 3, 4)
	ids, err = r.SyncEnabledStoreIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, ids)
}

func TestExcludedOrderStates(t *testing.T) {
	cfg := memory.NewScopedConfig()
	cfg.SetDefault(settings.PathExcludedOrderStates, "canceled, holded ,")
	r := newReader(cfg, settings.Defaults{})

	states, err := r.ExcludedOrderStates(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"canceled", "holded"}, states)
}
