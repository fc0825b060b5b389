package services_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejobratic/ordersync/internal/cache"
	"github.com/dejobratic/ordersync/internal/syncorder/adapters"
	"github.com/dejobratic/ordersync/internal/syncorder/adapters/memory"
	"github.com/dejobratic/ordersync/internal/syncorder/app/commands"
	"github.com/dejobratic/ordersync/internal/syncorder/app/services"
	"github.com/dejobratic/ordersync/internal/syncorder/app/settings"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

type env struct {
	store   *memory.Store
	config  *memory.ScopedConfig
	reader  *settings.Reader
	handler *commands.SyncHandler
	logs    *bytes.Buffer
	logger  *slog.Logger
	now     time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithClock(func() time.Time { return now }))
	config := memory.NewScopedConfig()
	reader := settings.NewReader(config, memory.NewStoreRepository(1, 2), settings.Defaults{MaxAttempts: 1}, nil)

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := commands.NewSyncHandler(store.Orders(), store.SyncOrders(), store.History(), nil, reader, logger)
	return &env{store: store, config: config, reader: reader, handler: handler, logs: logs, logger: logger, now: now}
}

// track creates an order and its sync record with one history row stamped at.
func (e *env) track(t *testing.T, orderID, storeID int64, status domain.Status, at time.Time) domain.SyncOrder {
	t.Helper()
	ctx := context.Background()
	e.store.Orders().Add(domain.Order{ID: orderID, StoreID: storeID, State: "processing"})
	saved, err := e.store.SyncOrders().Save(ctx, domain.SyncOrder{OrderID: orderID, StoreID: storeID, Status: status, Attempts: 1})
	require.NoError(t, err)
	row, err := e.store.History().CreateFromSyncOrder(ctx, *saved, domain.ActionProcessStart, "cron", domain.ResultSuccess, nil)
	require.NoError(t, err)
	require.NoError(t, e.store.History().SetTimestamp(row.EntityID, at))
	return *saved
}

func (e *env) status(t *testing.T, orderID int64) domain.Status {
	t.Helper()
	so, err := e.store.SyncOrders().GetByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	return so.Status
}

func intPtr(v int) *int { return &v }

func TestRequeueStuckOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("requeues only orders older than the threshold", func(t *testing.T) {
		e := newEnv(t)
		e.track(t, 1, 1, domain.StatusProcessing, e.now.Add(-60*time.Minute))
		e.track(t, 2, 1, domain.StatusProcessing, e.now.Add(-5*time.Minute))
		e.track(t, 3, 1, domain.StatusSynced, e.now.Add(-120*time.Minute))

		svc := services.NewStuckOrderService(e.store.SyncOrders(), e.handler, e.reader, e.logger,
			services.WithClock(func() time.Time { return e.now }))

		result, err := svc.Requeue(ctx, services.RequeueInput{ThresholdMinutes: intPtr(15), Via: "cron"})
		require.NoError(t, err)

		assert.Equal(t, 1, result.SuccessCount)
		assert.Equal(t, 0, result.ErrorCount)
		assert.True(t, result.IsSuccess)
		assert.Equal(t, domain.StatusRetry, e.status(t, 1))
		assert.Equal(t, domain.StatusProcessing, e.status(t, 2))
		assert.Equal(t, domain.StatusSynced, e.status(t, 3))

		so, err := e.store.SyncOrders().GetByOrderID(ctx, 1)
		require.NoError(t, err)
		rows, err := e.store.History().List(ctx, ports.HistoryCriteria{SyncOrderID: so.EntityID, NewestFirst: true, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, services.ReasonStuckInProcessing, rows.Items[0].AdditionalInformation["reason"])
	})

	t.Run("honors the store filter", func(t *testing.T) {
		e := newEnv(t)
		e.track(t, 1, 1, domain.StatusProcessing, e.now.Add(-time.Hour))
		e.track(t, 2, 2, domain.StatusProcessing, e.now.Add(-time.Hour))

		svc := services.NewStuckOrderService(e.store.SyncOrders(), e.handler, e.reader, e.logger,
			services.WithClock(func() time.Time { return e.now }), services.WithPageSize(1))

		result, err := svc.Requeue(ctx, services.RequeueInput{StoreIDs: []int64{2}, ThresholdMinutes: intPtr(15)})
		require.NoError(t, err)
		assert.Equal(t, 1, result.SuccessCount)
		assert.Equal(t, domain.StatusProcessing, e.status(t, 1))
		assert.Equal(t, domain.StatusRetry, e.status(t, 2))
	})

	t.Run("pages through every stuck order", func(t *testing.T) {
		e := newEnv(t)
		for id := int64(1); id <= 5; id++ {
			e.track(t, id, 1, domain.StatusProcessing, e.now.Add(-time.Hour))
		}

		svc := services.NewStuckOrderService(e.store.SyncOrders(), e.handler, e.reader, e.logger,
			services.WithClock(func() time.Time { return e.now }), services.WithPageSize(2))

		result, err := svc.Requeue(ctx, services.RequeueInput{ThresholdMinutes: intPtr(15)})
		require.NoError(t, err)
		assert.Equal(t, 5, result.SuccessCount)
	})

	t.Run("uses the configured threshold", func(t *testing.T) {
		e := newEnv(t)
		e.config.SetDefault(settings.PathStuckThresholdMinutes, "90")
		e.track(t, 1, 1, domain.StatusProcessing, e.now.Add(-time.Hour))

		svc := services.NewStuckOrderService(e.store.SyncOrders(), e.handler, e.reader, e.logger,
			services.WithClock(func() time.Time { return e.now }))

		result, err := svc.Requeue(ctx, services.RequeueInput{})
		require.NoError(t, err)
		assert.Equal(t, 0, result.SuccessCount)
		assert.False(t, result.IsSuccess)
		assert.Equal(t, domain.StatusProcessing, e.status(t, 1))
	})

	t.Run("rejects non-positive thresholds", func(t *testing.T) {
		e := newEnv(t)
		svc := services.NewStuckOrderService(e.store.SyncOrders(), e.handler, e.reader, e.logger)

		for _, threshold := range []int{0, -10} {
			result, err := svc.Requeue(ctx, services.RequeueInput{ThresholdMinutes: intPtr(threshold)})
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.False(t, result.IsSuccess)
			assert.Len(t, result.Messages, 1)
		}
	})
}

func TestRequeueStuckOrdersSeesWritesFromOtherProcesses(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.store.Orders().Add(domain.Order{ID: 7, StoreID: 1, State: "processing"})

	cached := adapters.NewCachedSyncOrderRepository(e.store.SyncOrders(),
		cache.New[int64, domain.SyncOrder](), cache.New[int64, domain.SyncOrder]())
	cachedHandler := commands.NewSyncHandler(e.store.Orders(), cached, e.store.History(), nil, e.reader, e.logger)

	queued, err := cachedHandler.Queue(ctx, commands.QueueCommand{OrderID: 7, Via: "api"})
	require.NoError(t, err)
	require.True(t, queued.Success)

	// Another process picks the order up without touching the cache above.
	processing, err := e.handler.MarkProcessing(ctx, commands.MarkProcessingCommand{OrderID: 7, Via: "cli"})
	require.NoError(t, err)
	require.True(t, processing.Success)
	rows, err := e.store.History().List(ctx, ports.HistoryCriteria{SyncOrderID: processing.SyncOrder.EntityID})
	require.NoError(t, err)
	for _, row := range rows.Items {
		require.NoError(t, e.store.History().SetTimestamp(row.EntityID, e.now.Add(-2*time.Hour)))
	}

	svc := services.NewStuckOrderService(cached, cachedHandler, e.reader, e.logger,
		services.WithClock(func() time.Time { return e.now }))

	result, err := svc.Requeue(ctx, services.RequeueInput{ThresholdMinutes: intPtr(15), Via: "cron"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Zero(t, result.ErrorCount)
	assert.Equal(t, domain.StatusRetry, e.status(t, 7))
}

func TestRemoveSyncedOrderHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes only rows older than the threshold", func(t *testing.T) {
		e := newEnv(t)
		old := e.track(t, 1, 1, domain.StatusSynced, e.now.Add(-40*24*time.Hour))
		recent := e.track(t, 2, 1, domain.StatusSynced, e.now.Add(-2*24*time.Hour))
		failed := e.track(t, 3, 1, domain.StatusError, e.now.Add(-40*24*time.Hour))

		svc := services.NewHistoryRetentionService(e.store.History(), e.reader, e.logger,
			services.WithClock(func() time.Time { return e.now }))

		result, err := svc.Remove(ctx, services.RetentionInput{SyncStatus: domain.StatusSynced, ThresholdDays: intPtr(30)})
		require.NoError(t, err)
		assert.Equal(t, 1, result.SuccessCount)
		assert.True(t, result.IsSuccess)

		for so, want := range map[int64]int{old.EntityID: 0, recent.EntityID: 1, failed.EntityID: 1} {
			rows, err := e.store.History().List(ctx, ports.HistoryCriteria{SyncOrderID: so})
			require.NoError(t, err)
			assert.Len(t, rows.Items, want, "sync order %d", so)
		}
	})

	t.Run("rejects non-terminal statuses without mutation", func(t *testing.T) {
		e := newEnv(t)
		e.track(t, 1, 1, domain.StatusQueued, e.now.Add(-400*24*time.Hour))

		svc := services.NewHistoryRetentionService(e.store.History(), e.reader, e.logger)
		result, err := svc.Remove(ctx, services.RetentionInput{SyncStatus: domain.StatusQueued, ThresholdDays: intPtr(1)})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.False(t, result.IsSuccess)

		rows, err := e.store.History().List(ctx, ports.HistoryCriteria{})
		require.NoError(t, err)
		assert.Len(t, rows.Items, 1)
	})

	t.Run("rejects non-positive explicit thresholds", func(t *testing.T) {
		e := newEnv(t)
		svc := services.NewHistoryRetentionService(e.store.History(), e.reader, e.logger)
		_, err := svc.Remove(ctx, services.RetentionInput{SyncStatus: domain.StatusError, ThresholdDays: intPtr(0)})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("is disabled when retention is not configured", func(t *testing.T) {
		e := newEnv(t)
		e.track(t, 1, 1, domain.StatusSynced, e.now.Add(-400*24*time.Hour))

		svc := services.NewHistoryRetentionService(e.store.History(), e.reader, e.logger)
		result, err := svc.Remove(ctx, services.RetentionInput{SyncStatus: domain.StatusSynced})
		require.NoError(t, err)
		assert.Zero(t, result.SuccessCount)
		assert.Contains(t, e.logs.String(), "history retention disabled")
	})

	t.Run("remove all uses configured thresholds per status", func(t *testing.T) {
		e := newEnv(t)
		e.config.SetDefault(settings.PathRetentionSyncedDays, "30")
		e.config.SetDefault(settings.PathRetentionErrorDays, "90")
		e.track(t, 1, 1, domain.StatusSynced, e.now.Add(-40*24*time.Hour))
		e.track(t, 2, 1, domain.StatusError, e.now.Add(-40*24*time.Hour))
		e.track(t, 3, 1, domain.StatusError, e.now.Add(-100*24*time.Hour))

		svc := services.NewHistoryRetentionService(e.store.History(), e.reader, e.logger,
			services.WithClock(func() time.Time { return e.now }))

		result, err := svc.RemoveAll(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, result.SuccessCount)
		assert.True(t, result.IsSuccess)

		rows, err := e.store.History().List(ctx, ports.HistoryCriteria{})
		require.NoError(t, err)
		require.Len(t, rows.Items, 1)
	})

	t.Run("remove all is a no-op when both statuses are disabled", func(t *testing.T) {
		e := newEnv(t)
		e.track(t, 1, 1, domain.StatusSynced, e.now.Add(-400*24*time.Hour))

		svc := services.NewHistoryRetentionService(e.store.History(), e.reader, e.logger)
		result, err := svc.RemoveAll(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, services.SweepResult{}, result)
		assert.Contains(t, e.logs.String(), "history retention disabled for all terminal statuses")

		rows, err := e.store.History().List(ctx, ports.HistoryCriteria{})
		require.NoError(t, err)
		assert.Len(t, rows.Items, 1)
	})
}
