package criteria_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejobratic/ordersync/internal/syncorder/adapters/memory"
	"github.com/dejobratic/ordersync/internal/syncorder/app/criteria"
	"github.com/dejobratic/ordersync/internal/syncorder/app/settings"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

func newProvider(cfg *memory.ScopedConfig, stores ...int64) *criteria.Provider {
	storeRepo := memory.NewStoreRepository(stores...)
	reader := settings.NewReader(cfg, storeRepo, settings.Defaults{}, nil)
	return criteria.NewProvider(reader, storeRepo)
}

func TestBuildRejectsInvalidPaging(t *testing.T) {
	p := newProvider(memory.NewScopedConfig(), 1)

	tests := []struct {
		name string
		in   criteria.Input
	}{
		{name: "zero page", in: criteria.Input{CurrentPage: 0, PageSize: 10}},
		{name: "negative page", in: criteria.Input{CurrentPage: -1, PageSize: 10}},
		{name: "zero size", in: criteria.Input{CurrentPage: 1, PageSize: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Build(context.Background(), tt.in)
			assert.ErrorIs(t, err, domain.ErrInvalidSearchCriteria)
		})
	}
}

func TestBuildResolvesExcludedStates(t *testing.T) {
	cfg := memory.NewScopedConfig()
	cfg.SetDefault(settings.PathExcludedOrderStates, "canceled")
	cfg.SetStore(settings.PathExcludedOrderStates, 2, "")

	p := newProvider(cfg, 1, 2)

	c, err := p.Build(context.Background(), criteria.Input{
		SyncStatuses: []domain.Status{domain.StatusRetry},
		CurrentPage:  3,
		PageSize:     50,
	})
	require.NoError(t, err)

	assert.Equal(t, map[int64][]string{1: {"canceled"}}, c.ExcludedOrderStates)
	assert.Equal(t, []domain.Status{domain.StatusRetry}, c.SyncStatuses)
	assert.Equal(t, 3, c.CurrentPage)
	assert.Equal(t, 50, c.PageSize)
	assert.Empty(t, c.StoreIDs)
}

func TestBuildKeepsStoreFilter(t *testing.T) {
	cfg := memory.NewScopedConfig()
	cfg.SetStore(settings.PathExcludedOrderStates, 5, "holded")

	p := newProvider(cfg, 1, 5)

	c, err := p.Build(context.Background(), criteria.Input{StoreIDs: []int64{5}, CurrentPage: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, c.StoreIDs)
	assert.Equal(t, map[int64][]string{5: {"holded"}}, c.ExcludedOrderStates)
}
