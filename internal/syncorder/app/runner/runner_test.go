package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejobratic/ordersync/internal/syncorder/adapters/memory"
	"github.com/dejobratic/ordersync/internal/syncorder/app/criteria"
	"github.com/dejobratic/ordersync/internal/syncorder/app/runner"
	"github.com/dejobratic/ordersync/internal/syncorder/app/settings"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

type mockProcessor struct {
	pages         [][]int64
	processPageFn func(ctx context.Context, orderIDs []int64, via string) (ports.PageResult, error)
}

func (m *mockProcessor) ProcessPage(ctx context.Context, orderIDs []int64, via string) (ports.PageResult, error) {
	m.pages = append(m.pages, orderIDs)
	if m.processPageFn != nil {
		return m.processPageFn(ctx, orderIDs, via)
	}
	return ports.PageResult{Status: ports.PageStatusProcessed, Processed: len(orderIDs), Succeeded: len(orderIDs)}, nil
}

type fixture struct {
	store  *memory.Store
	config *memory.ScopedConfig
	runner *runner.Runner
}

func newFixture(t *testing.T, processor ports.PageProcessor, stores ...int64) *fixture {
	t.Helper()
	store := memory.NewStore()
	config := memory.NewScopedConfig()
	storeRepo := memory.NewStoreRepository(stores...)
	reader := settings.NewReader(config, storeRepo, settings.Defaults{}, nil)
	provider := criteria.NewProvider(reader, storeRepo)
	r := runner.New(reader, provider, store.SyncOrders(), processor, nil, nil, 2)
	return &fixture{store: store, config: config, runner: r}
}

func (f *fixture) enable(storeIDs ...int64) {
	for _, id := range storeIDs {
		f.config.SetStore(settings.PathEnabled, id, "1")
	}
}

func (f *fixture) add(t *testing.T, orderID, storeID int64, status domain.Status) {
	t.Helper()
	f.store.Orders().Add(domain.Order{ID: orderID, StoreID: storeID, State: "processing"})
	_, err := f.store.SyncOrders().Save(context.Background(), domain.SyncOrder{OrderID: orderID, StoreID: storeID, Status: status})
	require.NoError(t, err)
}

func TestRunProcessesRetryBeforeQueued(t *testing.T) {
	processor := &mockProcessor{}
	f := newFixture(t, processor, 1)
	f.enable(1)
	f.add(t, 10, 1, domain.StatusQueued)
	f.add(t, 11, 1, domain.StatusRetry)
	f.add(t, 12, 1, domain.StatusRetry)
	f.add(t, 13, 1, domain.StatusRetry)
	f.add(t, 14, 1, domain.StatusSynced)

	summary, err := f.runner.Run(context.Background(), runner.RunInput{Via: "cron"})
	require.NoError(t, err)

	assert.Equal(t, [][]int64{{11, 12}, {13}, {10}}, processor.pages)
	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, 4, summary.Orders)
	assert.Empty(t, summary.PhaseErrors)
}

func TestRunStopsPhaseWhenPipelineHasNoMoreWork(t *testing.T) {
	processor := &mockProcessor{
		processPageFn: func(context.Context, []int64, string) (ports.PageResult, error) {
			return ports.PageResult{Status: ports.PageStatusNoMoreWork}, nil
		},
	}
	f := newFixture(t, processor, 1)
	f.enable(1)
	for id := int64(1); id <= 4; id++ {
		f.add(t, id, 1, domain.StatusRetry)
	}
	f.add(t, 5, 1, domain.StatusQueued)

	summary, err := f.runner.Run(context.Background(), runner.RunInput{})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 2}, {5}}, processor.pages)
	assert.Equal(t, 2, summary.Pages)
}

func TestRunPageFailureDoesNotHaltOtherPhase(t *testing.T) {
	processor := &mockProcessor{
		processPageFn: func(_ context.Context, orderIDs []int64, _ string) (ports.PageResult, error) {
			if orderIDs[0] == 1 {
				return ports.PageResult{}, errors.New("pipeline unavailable")
			}
			return ports.PageResult{Status: ports.PageStatusProcessed}, nil
		},
	}
	f := newFixture(t, processor, 1)
	f.enable(1)
	f.add(t, 1, 1, domain.StatusRetry)
	f.add(t, 2, 1, domain.StatusQueued)

	summary, err := f.runner.Run(context.Background(), runner.RunInput{})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1}, {2}}, processor.pages)
	assert.Contains(t, summary.PhaseErrors[domain.StatusRetry], "pipeline unavailable")
	assert.NotContains(t, summary.PhaseErrors, domain.StatusQueued)
}

func TestRunScope(t *testing.T) {
	t.Run("exits early without enabled stores", func(t *testing.T) {
		processor := &mockProcessor{}
		f := newFixture(t, processor, 1, 2)
		f.add(t, 1, 1, domain.StatusQueued)

		summary, err := f.runner.Run(context.Background(), runner.RunInput{})
		require.NoError(t, err)
		assert.Empty(t, processor.pages)
		assert.Zero(t, summary.Pages)
	})

	t.Run("intersects the filter with enabled stores", func(t *testing.T) {
		processor := &mockProcessor{}
		f := newFixture(t, processor, 1, 2, 3)
		f.enable(1, 2)
		f.add(t, 1, 1, domain.StatusQueued)
		f.add(t, 2, 2, domain.StatusQueued)
		f.add(t, 3, 3, domain.StatusQueued)

		summary, err := f.runner.Run(context.Background(), runner.RunInput{StoreIDs: []int64{2, 3}})
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, summary.StoreIDs)
		assert.Equal(t, [][]int64{{2}}, processor.pages)
	})

	t.Run("skips orders in excluded states", func(t *testing.T) {
		processor := &mockProcessor{}
		f := newFixture(t, processor, 1)
		f.enable(1)
		f.config.SetStore(settings.PathExcludedOrderStates, 1, "canceled")
		f.add(t, 1, 1, domain.StatusQueued)
		f.store.Orders().Add(domain.Order{ID: 2, StoreID: 1, State: "canceled"})
		_, err := f.store.SyncOrders().Save(context.Background(), domain.SyncOrder{OrderID: 2, StoreID: 1, Status: domain.StatusQueued})
		require.NoError(t, err)

		_, err = f.runner.Run(context.Background(), runner.RunInput{})
		require.NoError(t, err)
		assert.Equal(t, [][]int64{{1}}, processor.pages)
	})
}
