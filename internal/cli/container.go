package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dejobratic/ordersync/internal/cache"
	checkpointpostgres "github.com/dejobratic/ordersync/internal/checkpoint/postgres"
	"github.com/dejobratic/ordersync/internal/config"
	"github.com/dejobratic/ordersync/internal/database"
	"github.com/dejobratic/ordersync/internal/events"
	"github.com/dejobratic/ordersync/internal/syncorder/adapters"
	syncpostgres "github.com/dejobratic/ordersync/internal/syncorder/adapters/postgres"
	"github.com/dejobratic/ordersync/internal/syncorder/app"
	"github.com/dejobratic/ordersync/internal/syncorder/app/commands"
	"github.com/dejobratic/ordersync/internal/syncorder/app/settings"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	syncmetrics "github.com/dejobratic/ordersync/internal/syncorder/metrics"
	"github.com/dejobratic/ordersync/internal/syncorder/pipeline"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
	"github.com/dejobratic/ordersync/internal/telemetry"
)

const meterName = "github.com/dejobratic/ordersync"

// container owns every long-lived dependency of one process.
type container struct {
	cfg       *config.Config
	logger    *slog.Logger
	pool      *pgxpool.Pool
	telemetry *telemetry.Telemetry
	config    *syncpostgres.ScopedConfig
	service   *app.Service
}

func newContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*container, error) {
	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	c := &container{cfg: cfg, logger: logger, pool: pool, telemetry: tel}

	if cfg.Database.AutoMigrate {
		logger.InfoContext(ctx, "running database migrations", "path", cfg.Database.MigrationsPath)
		if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	if err := c.buildService(); err != nil {
		c.Close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *container) buildService() error {
	meter := c.telemetry.Meter(meterName)

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create database metrics: %w", err)
	}
	eventMetrics, err := events.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create event metrics: %w", err)
	}
	syncMetrics, err := syncmetrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create sync metrics: %w", err)
	}

	syncOrders := adapters.NewCachedSyncOrderRepository(
		adapters.NewObservableSyncOrderRepository(syncpostgres.NewSyncOrderRepository(c.pool), dbMetrics),
		cache.New[int64, domain.SyncOrder](),
		cache.New[int64, domain.SyncOrder](),
	)
	history := adapters.NewCachedHistoryRepository(
		adapters.NewObservableHistoryRepository(syncpostgres.NewHistoryRepository(c.pool), dbMetrics),
		cache.New[int64, domain.History](),
	)
	orders := syncpostgres.NewOrderLookup(c.pool)
	c.config = syncpostgres.NewScopedConfig(c.pool)

	deps := app.Dependencies{
		Orders:      orders,
		SyncOrders:  syncOrders,
		History:     history,
		Events:      adapters.NewObservableEventBus(events.NewNoopEventBus(c.logger), eventMetrics),
		Config:      c.config,
		Stores:      syncpostgres.NewStoreRepository(c.pool),
		Legacy:      syncpostgres.NewLegacySource(c.pool, c.logger),
		Checkpoints: checkpointpostgres.NewStore(c.pool),
	}

	syncCfg := c.cfg.Sync
	opts := app.Options{
		Defaults: settings.Defaults{
			MaxAttempts:                syncCfg.MaxAttempts,
			StuckThresholdMinutes:      syncCfg.StuckThresholdMinutes,
			HistoryRetentionSyncedDays: syncCfg.HistoryRetentionSyncedDays,
			HistoryRetentionErrorDays:  syncCfg.HistoryRetentionErrorDays,
			EnabledByDefault:           syncCfg.EnabledByDefault,
		},
		PageSize:       syncCfg.PageSize,
		LegacyPageSize: syncCfg.LegacyPageSize,
		Via:            syncCfg.Via,
	}

	c.service = app.NewService(deps, opts, c.processorFactory(orders, syncMetrics), c.logger, syncMetrics)
	return nil
}

// processorFactory returns nil when no analytics endpoint is configured;
// the batch runner then refuses to run.
func (c *container) processorFactory(orders ports.OrderLookup, m *syncmetrics.Metrics) app.ProcessorFactory {
	tc := c.cfg.Transmitter
	if tc.Endpoint == "" {
		c.logger.Warn("no analytics endpoint configured, batch processing disabled")
		return nil
	}
	transmitter := pipeline.NewHTTPTransmitter(pipeline.TransmitterConfig{
		Endpoint:         tc.Endpoint,
		APIKey:           tc.APIKey,
		UserAgent:        tc.UserAgent,
		Timeout:          tc.Timeout,
		MaxRetries:       tc.MaxRetries,
		BreakerThreshold: tc.BreakerThreshold,
		BreakerCooldown:  tc.BreakerCooldown,
	}, pipeline.WithTransmitMetrics(m))

	return func(handler commands.Handler) ports.PageProcessor {
		return pipeline.NewProcessor(handler, orders, pipeline.OrderSummaryBuilder{}, transmitter, c.logger)
	}
}

// Close releases the pool and flushes telemetry.
func (c *container) Close(ctx context.Context) {
	if c.pool != nil {
		c.pool.Close()
	}
	if c.telemetry != nil {
		if err := c.telemetry.Shutdown(ctx); err != nil {
			c.logger.WarnContext(ctx, "telemetry shutdown failed", "error", err)
		}
	}
}
