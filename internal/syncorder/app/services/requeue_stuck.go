package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/app/commands"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// ReasonStuckInProcessing annotates history rows written by the requeue sweep.
const ReasonStuckInProcessing = "stuck_in_processing"

const sweepRequeueStuck = "requeue_stuck"

// StuckThresholds supplies the configured reclamation threshold.
type StuckThresholds interface {
	StuckThresholdMinutes(ctx context.Context) int
}

// RequeueInput selects the orders to reclaim. A nil ThresholdMinutes uses
// the configured threshold.
type RequeueInput struct {
	StoreIDs         []int64
	ThresholdMinutes *int
	Via              string
}

// StuckOrderService requeues orders left in PROCESSING by a processor that
// never reported back.
type StuckOrderService struct {
	syncOrders ports.SyncOrderRepository
	handler    commands.Handler
	thresholds StuckThresholds
	logger     *slog.Logger
	opts       options
}

// NewStuckOrderService constructs a StuckOrderService.
func NewStuckOrderService(
	syncOrders ports.SyncOrderRepository,
	handler commands.Handler,
	thresholds StuckThresholds,
	logger *slog.Logger,
	opts ...Option,
) *StuckOrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StuckOrderService{
		syncOrders: syncOrders,
		handler:    handler,
		thresholds: thresholds,
		logger:     logger,
		opts:       newOptions(opts),
	}
}

// Requeue queues every PROCESSING order whose latest activity is older than
// the threshold. Failures on single orders are counted and never stop the
// sweep.
func (s *StuckOrderService) Requeue(ctx context.Context, in RequeueInput) (SweepResult, error) {
	var threshold int
	if in.ThresholdMinutes != nil {
		threshold = *in.ThresholdMinutes
	} else {
		threshold = s.thresholds.StuckThresholdMinutes(ctx)
	}
	if threshold <= 0 {
		err := fmt.Errorf("%w: stuck threshold must be positive, got %d minutes", domain.ErrInvalidArgument, threshold)
		s.logger.ErrorContext(ctx, "requeue stuck orders rejected", "error", err)
		return rejected(err), err
	}

	cutoff := s.opts.clock().Add(-time.Duration(threshold) * time.Minute)
	s.logger.InfoContext(ctx, "requeueing stuck orders",
		"threshold_minutes", threshold,
		"cutoff", cutoff,
		"store_ids", in.StoreIDs,
		"via", in.Via,
	)

	var result SweepResult
	var after int64
	for {
		list, err := s.syncOrders.List(ctx, ports.SearchCriteria{
			SyncStatuses:       []domain.Status{domain.StatusProcessing},
			StoreIDs:           in.StoreIDs,
			LastActivityBefore: &cutoff,
			AfterEntityID:      after,
			PageSize:           s.opts.pageSize,
		})
		if err != nil {
			return result, fmt.Errorf("list stuck orders: %w", err)
		}
		// Requeue resolves by order id, which the listing does not refresh.
		s.syncOrders.ClearCache()

		for _, syncOrder := range list.Items {
			after = syncOrder.EntityID
			s.requeue(ctx, syncOrder, threshold, in.Via, &result)
		}

		if len(list.Items) < s.opts.pageSize {
			break
		}
	}

	s.logger.InfoContext(ctx, "stuck orders requeued",
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount,
	)
	return result, nil
}

func (s *StuckOrderService) requeue(ctx context.Context, syncOrder domain.SyncOrder, threshold int, via string, result *SweepResult) {
	res, err := s.handler.Queue(ctx, commands.QueueCommand{
		OrderID: syncOrder.OrderID,
		Via:     via,
		AdditionalInformation: map[string]any{
			"reason":            ReasonStuckInProcessing,
			"threshold_minutes": threshold,
		},
	})

	ok := err == nil && res.Success
	if s.opts.metrics != nil {
		s.opts.metrics.RecordSweepItem(ctx, sweepRequeueStuck, ok)
	}
	if ok {
		result.succeeded()
		return
	}

	if err == nil {
		err = errors.New(strings.Join(res.Messages, "; "))
	}
	s.logger.WarnContext(ctx, "failed to requeue stuck order",
		"order_id", syncOrder.OrderID,
		"store_id", syncOrder.StoreID,
		"original_status", syncOrder.Status.String(),
		"error", err,
	)
	result.failed("order %d: %v", syncOrder.OrderID, err)
}
