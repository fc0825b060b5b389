// Package scheduler runs the periodic sync jobs inside the serve process.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dejobratic/ordersync/internal/syncorder/app/runner"
	"github.com/dejobratic/ordersync/internal/syncorder/app/services"
	"github.com/dejobratic/ordersync/internal/telemetry"
)

// Jobs is the part of the sync service the scheduler drives.
type Jobs interface {
	RunQueue(ctx context.Context, in runner.RunInput) (runner.RunSummary, error)
	RequeueStuck(ctx context.Context, in services.RequeueInput) (services.SweepResult, error)
	CleanupAllHistory(ctx context.Context, storeIDs []int64) (services.SweepResult, error)
}

// Intervals sets how often each job runs. A zero interval disables the job.
type Intervals struct {
	Queue     time.Duration
	Requeue   time.Duration
	Retention time.Duration
}

type job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// Scheduler ticks every enabled job on its own interval. Runs of one job
// never overlap.
type Scheduler struct {
	jobs   []job
	logger *slog.Logger
}

// New constructs a Scheduler. via is recorded on history rows the jobs write.
func New(svc Jobs, intervals Intervals, via string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	all := []job{
		{
			name:     "run_queue",
			interval: intervals.Queue,
			run: func(ctx context.Context) error {
				_, err := svc.RunQueue(ctx, runner.RunInput{Via: via})
				return err
			},
		},
		{
			name:     "requeue_stuck",
			interval: intervals.Requeue,
			run: func(ctx context.Context) error {
				_, err := svc.RequeueStuck(ctx, services.RequeueInput{Via: via})
				return err
			},
		},
		{
			name:     "history_retention",
			interval: intervals.Retention,
			run: func(ctx context.Context) error {
				_, err := svc.CleanupAllHistory(ctx, nil)
				return err
			},
		},
	}

	s := &Scheduler{logger: logger}
	for _, j := range all {
		if j.interval > 0 {
			s.jobs = append(s.jobs, j)
		}
	}
	return s
}

// Run blocks until ctx is canceled. Job failures are logged and the job
// keeps its schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		s.logger.InfoContext(ctx, "no scheduled jobs enabled")
		<-ctx.Done()
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		g.Go(func() error {
			s.loop(ctx, j)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	s.logger.InfoContext(ctx, "scheduled job started", "job", j.name, "interval", j.interval.String())
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduled job stopped", "job", j.name)
			return
		case <-ticker.C:
			s.tick(ctx, j)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, j job) {
	ctx = telemetry.WithRunID(ctx, uuid.NewString())
	start := time.Now()

	err := j.run(ctx)
	switch {
	case err == nil:
		s.logger.DebugContext(ctx, "scheduled job finished", "job", j.name, "duration", time.Since(start).String())
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		s.logger.InfoContext(ctx, "scheduled job interrupted", "job", j.name)
	default:
		s.logger.ErrorContext(ctx, "scheduled job failed", "job", j.name, "error", err)
	}
}
