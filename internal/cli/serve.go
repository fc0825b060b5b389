package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dejobratic/ordersync/internal/database"
	"github.com/dejobratic/ordersync/internal/scheduler"
	httpadapter "github.com/dejobratic/ordersync/internal/syncorder/adapters/http"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and the scheduled sync jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			noScheduler, _ := cmd.Flags().GetBool("no-scheduler")
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				return serve(ctx, c, !noScheduler)
			})
		},
	}
	cmd.Flags().Bool("no-scheduler", false, "Serve the API only; scheduled jobs run elsewhere")
	return cmd
}

func serve(ctx context.Context, c *container, withScheduler bool) error {
	httpMetrics, err := httpadapter.NewMetrics(c.telemetry.Meter(meterName))
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	router := httpadapter.NewRouter(httpadapter.NewHandler(c.service, c.logger), httpadapter.RouterConfig{
		Metrics:        httpMetrics,
		MetricsPath:    c.cfg.HTTP.MetricsPath,
		MetricsHandler: c.telemetry.MetricsHandler(),
		Ready: func(ctx context.Context) error {
			return database.CheckHealth(ctx, c.pool)
		},
		Logger: c.logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Admin-triggered batch runs can take a while.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.logger.InfoContext(gctx, "http server starting", "port", c.cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if withScheduler {
		sched := scheduler.New(c.service, scheduler.Intervals{
			Queue:     c.cfg.Scheduler.QueueInterval,
			Requeue:   c.cfg.Scheduler.RequeueInterval,
			Retention: c.cfg.Scheduler.RetentionInterval,
		}, c.cfg.Sync.Via, c.logger)
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), time.Duration(c.cfg.HTTP.ShutdownGrace)*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		c.logger.InfoContext(shutdownCtx, "http server stopped")
		return nil
	})

	return g.Wait()
}
