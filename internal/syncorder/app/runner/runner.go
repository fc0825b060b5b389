// Package runner drives scheduled batch processing of queued orders.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/app/criteria"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/metrics"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// Phases run in this order so retries take priority over first attempts.
var Phases = []domain.Status{domain.StatusRetry, domain.StatusQueued}

// StoreScope lists the stores with sync enabled.
type StoreScope interface {
	SyncEnabledStoreIDs(ctx context.Context) ([]int64, error)
}

// CriteriaBuilder builds search criteria for one page.
type CriteriaBuilder interface {
	Build(ctx context.Context, in criteria.Input) (ports.SearchCriteria, error)
}

// RunInput configures one invocation. An empty StoreIDs means every
// sync-enabled store.
type RunInput struct {
	StoreIDs []int64
	PageSize int
	Via      string
}

// RunSummary reports what one invocation did.
type RunSummary struct {
	StoreIDs    []int64                  `json:"store_ids"`
	Pages       int                      `json:"pages"`
	Orders      int                      `json:"orders"`
	Duration    time.Duration            `json:"duration"`
	PhaseErrors map[domain.Status]string `json:"phase_errors,omitempty"`
}

// Runner pages through RETRY then QUEUED orders and hands every page to the
// processing pipeline.
type Runner struct {
	scope      StoreScope
	criteria   CriteriaBuilder
	syncOrders ports.SyncOrderRepository
	processor  ports.PageProcessor
	logger     *slog.Logger
	metrics    *metrics.Metrics
	pageSize   int
}

// New constructs a Runner. metrics may be nil.
func New(
	scope StoreScope,
	criteria CriteriaBuilder,
	syncOrders ports.SyncOrderRepository,
	processor ports.PageProcessor,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	defaultPageSize int,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultPageSize <= 0 {
		defaultPageSize = 100
	}
	return &Runner{
		scope:      scope,
		criteria:   criteria,
		syncOrders: syncOrders,
		processor:  processor,
		logger:     logger,
		metrics:    metrics,
		pageSize:   defaultPageSize,
	}
}

// Run executes both phases. A failing page ends its phase only; the returned
// error is non-nil only when the store scope cannot be resolved.
func (r *Runner) Run(ctx context.Context, in RunInput) (RunSummary, error) {
	start := time.Now()
	summary := RunSummary{}

	storeIDs, err := r.resolveStores(ctx, in.StoreIDs)
	if err != nil {
		return summary, err
	}
	if len(storeIDs) == 0 {
		r.logger.InfoContext(ctx, "no stores with sync enabled, nothing to do", "store_ids", in.StoreIDs)
		return summary, nil
	}
	summary.StoreIDs = storeIDs

	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = r.pageSize
	}

	for _, phase := range Phases {
		pages, orders, err := r.runPhase(ctx, phase, storeIDs, pageSize, in.Via)
		summary.Pages += pages
		summary.Orders += orders
		if err != nil {
			if summary.PhaseErrors == nil {
				summary.PhaseErrors = make(map[domain.Status]string)
			}
			summary.PhaseErrors[phase] = err.Error()
			r.logger.ErrorContext(ctx, "batch phase aborted",
				"phase", phase.String(),
				"error", err,
			)
		}
		if ctx.Err() != nil {
			break
		}
	}

	summary.Duration = time.Since(start)
	if r.metrics != nil {
		r.metrics.RecordBatchDuration(ctx, summary.Duration.Seconds())
	}
	r.logger.InfoContext(ctx, "batch run completed",
		"pages", summary.Pages,
		"orders", summary.Orders,
		"duration", summary.Duration.String(),
		"store_ids", storeIDs,
	)
	return summary, ctx.Err()
}

func (r *Runner) runPhase(ctx context.Context, phase domain.Status, storeIDs []int64, pageSize int, via string) (int, int, error) {
	pages, orders := 0, 0
	// Offset paging over a filter that processing shrinks skips some orders
	// each run. They stay in the phase and are picked up by the next run.
	// Do not rewind the page here; a failing order would loop forever.
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return pages, orders, err
		}

		c, err := r.criteria.Build(ctx, criteria.Input{
			SyncStatuses: []domain.Status{phase},
			StoreIDs:     storeIDs,
			CurrentPage:  page,
			PageSize:     pageSize,
		})
		if err != nil {
			return pages, orders, fmt.Errorf("build criteria for page %d: %w", page, err)
		}

		list, err := r.syncOrders.List(ctx, c)
		if err != nil {
			return pages, orders, fmt.Errorf("list page %d: %w", page, err)
		}
		if len(list.Items) == 0 {
			r.logger.DebugContext(ctx, "no more orders in phase", "phase", phase.String(), "page", page)
			return pages, orders, nil
		}

		orderIDs := make([]int64, 0, len(list.Items))
		for _, so := range list.Items {
			orderIDs = append(orderIDs, so.OrderID)
		}

		result, err := r.processor.ProcessPage(ctx, orderIDs, via)
		pages++
		orders += len(orderIDs)
		if r.metrics != nil {
			r.metrics.RecordBatchPage(ctx, phase.String())
		}
		if err != nil {
			return pages, orders, fmt.Errorf("process page %d: %w", page, err)
		}

		r.logger.InfoContext(ctx, "batch page processed",
			"phase", phase.String(),
			"page", page,
			"orders", len(orderIDs),
			"succeeded", result.Succeeded,
			"failed", result.Failed,
			"status", string(result.Status),
		)

		if result.Status == ports.PageStatusNoMoreWork {
			return pages, orders, nil
		}
	}
}

func (r *Runner) resolveStores(ctx context.Context, filter []int64) ([]int64, error) {
	enabled, err := r.scope.SyncEnabledStoreIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve store scope: %w", err)
	}
	if len(filter) == 0 {
		return enabled, nil
	}

	allowed := make(map[int64]bool, len(enabled))
	for _, id := range enabled {
		allowed[id] = true
	}
	var scoped []int64
	for _, id := range filter {
		if allowed[id] {
			scoped = append(scoped, id)
		}
	}
	return scoped, nil
}
