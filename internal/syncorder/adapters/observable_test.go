package adapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/dejobratic/ordersync/internal/database"
	"github.com/dejobratic/ordersync/internal/events"
	"github.com/dejobratic/ordersync/internal/syncorder/adapters"
	"github.com/dejobratic/ordersync/internal/syncorder/adapters/memory"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

func metricNames(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestObservableRepositoriesRecordQueries(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	dbMetrics, err := database.NewMetrics(meter)
	require.NoError(t, err)

	store := memory.NewStore()
	syncOrders := adapters.NewObservableSyncOrderRepository(store.SyncOrders(), dbMetrics)
	history := adapters.NewObservableHistoryRepository(store.History(), dbMetrics)

	saved, err := syncOrders.Save(ctx, domain.SyncOrder{OrderID: 1, StoreID: 1, Status: domain.StatusQueued})
	require.NoError(t, err)
	_, err = history.CreateFromSyncOrder(ctx, *saved, domain.ActionQueue, "cli", domain.ResultSuccess, nil)
	require.NoError(t, err)
	_, err = syncOrders.GetByOrderID(ctx, 404)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	m, ok := metricNames(t, reader)["db_query_duration_seconds"]
	require.True(t, ok)
	histogram := m.Data.(metricdata.Histogram[float64])
	assert.Len(t, histogram.DataPoints, 3)
}

func TestObservableEventBusRecordsPublish(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	eventMetrics, err := events.NewMetrics(meter)
	require.NoError(t, err)

	bus := adapters.NewObservableEventBus(events.NewNoopEventBus(nil), eventMetrics)
	require.NoError(t, bus.PublishSyncStatusChanged(context.Background(), ports.StatusChange{OrderID: 1}))

	_, ok := metricNames(t, reader)["event_publish_duration_seconds"]
	assert.True(t, ok)
}
