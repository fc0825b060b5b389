// Package app bundles the sync use cases behind one facade for the CLI, the
// admin API and the scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dejobratic/ordersync/internal/syncorder/app/commands"
	"github.com/dejobratic/ordersync/internal/syncorder/app/criteria"
	"github.com/dejobratic/ordersync/internal/syncorder/app/queries"
	"github.com/dejobratic/ordersync/internal/syncorder/app/runner"
	"github.com/dejobratic/ordersync/internal/syncorder/app/services"
	"github.com/dejobratic/ordersync/internal/syncorder/app/settings"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/legacy"
	"github.com/dejobratic/ordersync/internal/syncorder/metrics"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// ErrNoProcessor is returned by RunQueue when the service was built without
// a page processor.
var ErrNoProcessor = errors.New("no page processor configured")

// Dependencies are the adapters the service runs on.
type Dependencies struct {
	Orders      ports.OrderLookup
	SyncOrders  ports.SyncOrderRepository
	History     ports.HistoryRepository
	Events      ports.EventBus
	Config      ports.ScopedConfig
	Stores      ports.StoreRepository
	Legacy      ports.LegacySource
	Checkpoints ports.CheckpointStore
}

// Options tunes paging and the fallbacks for scoped configuration.
type Options struct {
	Defaults       settings.Defaults
	PageSize       int
	LegacyPageSize int
	Via            string
}

// ProcessorFactory builds the page processor on top of the action handler
// the service exposes, so processing goes through the same instrumentation.
type ProcessorFactory func(handler commands.Handler) ports.PageProcessor

// Service bundles every sync use case.
type Service struct {
	syncOrders ports.SyncOrderRepository
	history    ports.HistoryRepository
	settings   *settings.Reader
	handler    commands.Handler
	getOrder   *queries.GetSyncOrderQueryHandler
	stuck      *services.StuckOrderService
	retention  *services.HistoryRetentionService
	runner     *runner.Runner
	migrator   *legacy.Migrator
	canRun     bool
	via        string
}

// NewService wires required dependencies. newProcessor may be nil when the
// caller never runs the batch runner.
func NewService(
	deps Dependencies,
	opts Options,
	newProcessor ProcessorFactory,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	via := opts.Via
	if via == "" {
		via = "cron"
	}

	reader := settings.NewReader(deps.Config, deps.Stores, opts.Defaults, logger)
	coreHandler := commands.NewSyncHandler(deps.Orders, deps.SyncOrders, deps.History, deps.Events, reader, logger)
	handler := commands.NewObservableHandler(coreHandler, logger, metrics)

	var processor ports.PageProcessor
	if newProcessor != nil {
		processor = newProcessor(handler)
	}

	sweepOpts := []services.Option{services.WithMetrics(metrics)}

	return &Service{
		syncOrders: deps.SyncOrders,
		history:    deps.History,
		settings:   reader,
		handler:    handler,
		getOrder:   queries.NewGetSyncOrderQueryHandler(deps.SyncOrders, deps.History),
		stuck:      services.NewStuckOrderService(deps.SyncOrders, handler, reader, logger, sweepOpts...),
		retention:  services.NewHistoryRetentionService(deps.History, reader, logger, sweepOpts...),
		runner: runner.New(
			reader,
			criteria.NewProvider(reader, deps.Stores),
			deps.SyncOrders,
			processor,
			logger,
			metrics,
			opts.PageSize,
		),
		migrator: legacy.NewMigrator(handler, deps.History, deps.Legacy, deps.Stores, deps.Checkpoints, logger, opts.LegacyPageSize),
		canRun:   processor != nil,
		via:      via,
	}
}

// Handler exposes the instrumented state machine actions.
func (s *Service) Handler() commands.Handler {
	return s.handler
}

// Settings exposes the scoped configuration reader.
func (s *Service) Settings() *settings.Reader {
	return s.settings
}

// ClearCaches drops every cached read. Each entry point calls it first so a
// long-lived process sees writes made by other processes.
func (s *Service) ClearCaches() {
	s.syncOrders.ClearCache()
	s.history.ClearCache()
}

// QueueOrder queues one order. An empty via falls back to the service default.
func (s *Service) QueueOrder(ctx context.Context, orderID int64, via string, info map[string]any) (commands.ActionResult, error) {
	s.ClearCaches()
	if via == "" {
		via = s.via
	}
	return s.handler.Queue(ctx, commands.QueueCommand{
		OrderID:               orderID,
		Via:                   via,
		AdditionalInformation: info,
	})
}

// GetSyncOrder returns an order's sync record with its latest history rows.
func (s *Service) GetSyncOrder(ctx context.Context, orderID int64, historyLimit int) (*queries.SyncOrderView, error) {
	s.ClearCaches()
	return s.getOrder.Handle(ctx, queries.GetSyncOrderQuery{OrderID: orderID, HistoryLimit: historyLimit})
}

// RequeueStuck reclaims orders left in PROCESSING.
func (s *Service) RequeueStuck(ctx context.Context, in services.RequeueInput) (services.SweepResult, error) {
	s.ClearCaches()
	if in.Via == "" {
		in.Via = s.via
	}
	return s.stuck.Requeue(ctx, in)
}

// CleanupHistory prunes history for one terminal status.
func (s *Service) CleanupHistory(ctx context.Context, in services.RetentionInput) (services.SweepResult, error) {
	s.ClearCaches()
	return s.retention.Remove(ctx, in)
}

// CleanupAllHistory prunes history for every terminal status with a
// configured retention.
func (s *Service) CleanupAllHistory(ctx context.Context, storeIDs []int64) (services.SweepResult, error) {
	s.ClearCaches()
	return s.retention.RemoveAll(ctx, storeIDs)
}

// RunQueue runs the batch runner once.
func (s *Service) RunQueue(ctx context.Context, in runner.RunInput) (runner.RunSummary, error) {
	s.ClearCaches()
	if !s.canRun {
		return runner.RunSummary{}, ErrNoProcessor
	}
	if in.Via == "" {
		in.Via = s.via
	}
	return s.runner.Run(ctx, in)
}

// MigrateLegacy reconciles legacy flags for one store, or for every store
// when storeID is zero.
func (s *Service) MigrateLegacy(ctx context.Context, storeID int64) ([]legacy.Report, error) {
	if storeID < 0 {
		return nil, fmt.Errorf("%w: store id must not be negative", domain.ErrInvalidArgument)
	}
	s.ClearCaches()
	if storeID == 0 {
		return s.migrator.ExecuteForAllStores(ctx)
	}
	report, err := s.migrator.ExecuteForStoreID(ctx, storeID)
	return []legacy.Report{report}, err
}
