// Package criteria builds SyncOrder search criteria that honor the per-store
// excluded order states.
package criteria

import (
	"context"
	"fmt"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// ExclusionSource returns the order states a store never sends.
type ExclusionSource interface {
	ExcludedOrderStates(ctx context.Context, storeID int64) ([]string, error)
}

// StoreSource lists every known store.
type StoreSource interface {
	ListStoreIDs(ctx context.Context) ([]int64, error)
}

// Input narrows the orders a criteria object selects.
type Input struct {
	OrderIDs     []int64
	SyncStatuses []domain.Status
	StoreIDs     []int64
	CurrentPage  int
	PageSize     int
}

// Provider builds ports.SearchCriteria.
type Provider struct {
	exclusions ExclusionSource
	stores     StoreSource
}

// NewProvider constructs a Provider.
func NewProvider(exclusions ExclusionSource, stores StoreSource) *Provider {
	return &Provider{exclusions: exclusions, stores: stores}
}

// Build validates paging and resolves excluded order states for every store
// in scope. With no store filter every known store is consulted.
func (p *Provider) Build(ctx context.Context, in Input) (ports.SearchCriteria, error) {
	if in.CurrentPage <= 0 {
		return ports.SearchCriteria{}, fmt.Errorf("%w: current page must be positive, got %d", domain.ErrInvalidSearchCriteria, in.CurrentPage)
	}
	if in.PageSize <= 0 {
		return ports.SearchCriteria{}, fmt.Errorf("%w: page size must be positive, got %d", domain.ErrInvalidSearchCriteria, in.PageSize)
	}

	storeIDs := in.StoreIDs
	if len(storeIDs) == 0 {
		all, err := p.stores.ListStoreIDs(ctx)
		if err != nil {
			return ports.SearchCriteria{}, fmt.Errorf("list stores: %w", err)
		}
		storeIDs = all
	}

	excluded := make(map[int64][]string)
	for _, storeID := range storeIDs {
		states, err := p.exclusions.ExcludedOrderStates(ctx, storeID)
		if err != nil {
			return ports.SearchCriteria{}, fmt.Errorf("excluded order states for store %d: %w", storeID, err)
		}
		if len(states) > 0 {
			excluded[storeID] = states
		}
	}

	return ports.SearchCriteria{
		OrderIDs:            in.OrderIDs,
		SyncStatuses:        in.SyncStatuses,
		StoreIDs:            in.StoreIDs,
		ExcludedOrderStates: excluded,
		CurrentPage:         in.CurrentPage,
		PageSize:            in.PageSize,
	}, nil
}
