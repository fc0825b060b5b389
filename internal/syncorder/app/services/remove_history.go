package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

const sweepHistoryRetention = "history_retention"

// RetentionThresholds supplies the configured retention per terminal status.
type RetentionThresholds interface {
	RetentionDays(ctx context.Context, status domain.Status) (int, error)
}

// RetentionInput selects the history rows to prune. A nil ThresholdDays uses
// the configured retention for the status.
type RetentionInput struct {
	SyncStatus    domain.Status
	StoreIDs      []int64
	ThresholdDays *int
}

// HistoryRetentionService prunes history of orders in a terminal status.
type HistoryRetentionService struct {
	history    ports.HistoryRepository
	thresholds RetentionThresholds
	logger     *slog.Logger
	opts       options
}

// NewHistoryRetentionService constructs a HistoryRetentionService.
func NewHistoryRetentionService(
	history ports.HistoryRepository,
	thresholds RetentionThresholds,
	logger *slog.Logger,
	opts ...Option,
) *HistoryRetentionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryRetentionService{
		history:    history,
		thresholds: thresholds,
		logger:     logger,
		opts:       newOptions(opts),
	}
}

// Remove deletes history rows at least ThresholdDays old whose order is
// currently in SyncStatus. An unconfigured retention makes the call a no-op.
func (s *HistoryRetentionService) Remove(ctx context.Context, in RetentionInput) (SweepResult, error) {
	if !in.SyncStatus.IsTerminal() {
		err := fmt.Errorf("%w: history retention applies to SYNCED or ERROR, got %q", domain.ErrInvalidArgument, in.SyncStatus.String())
		s.logger.ErrorContext(ctx, "history retention rejected", "error", err)
		return rejected(err), err
	}

	var days int
	if in.ThresholdDays != nil {
		days = *in.ThresholdDays
		if days <= 0 {
			err := fmt.Errorf("%w: retention threshold must be positive, got %d days", domain.ErrInvalidArgument, days)
			s.logger.ErrorContext(ctx, "history retention rejected", "error", err)
			return rejected(err), err
		}
	} else {
		configured, err := s.thresholds.RetentionDays(ctx, in.SyncStatus)
		if err != nil {
			return rejected(err), err
		}
		if configured <= 0 {
			s.logger.InfoContext(ctx, "history retention disabled", "sync_status", in.SyncStatus.String())
			return SweepResult{}, nil
		}
		days = configured
	}

	cutoff := s.opts.clock().Add(-time.Duration(days) * 24 * time.Hour)
	s.logger.InfoContext(ctx, "removing sync history",
		"sync_status", in.SyncStatus.String(),
		"threshold_days", days,
		"cutoff", cutoff,
		"store_ids", in.StoreIDs,
	)

	status := in.SyncStatus
	var result SweepResult
	var after int64
	for {
		list, err := s.history.List(ctx, ports.HistoryCriteria{
			SyncStatus:    &status,
			StoreIDs:      in.StoreIDs,
			Before:        &cutoff,
			AfterEntityID: after,
			Limit:         s.opts.pageSize,
		})
		if err != nil {
			return result, fmt.Errorf("list history: %w", err)
		}

		for _, row := range list.Items {
			after = row.EntityID
			s.remove(ctx, row, &result)
		}

		if len(list.Items) < s.opts.pageSize {
			break
		}
	}

	s.history.ClearCache()
	s.logger.InfoContext(ctx, "sync history removed",
		"sync_status", in.SyncStatus.String(),
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount,
	)
	return result, nil
}

// RemoveAll prunes both terminal statuses with their configured retention.
func (s *HistoryRetentionService) RemoveAll(ctx context.Context, storeIDs []int64) (SweepResult, error) {
	terminal := []domain.Status{domain.StatusSynced, domain.StatusError}

	enabled := 0
	for _, status := range terminal {
		days, err := s.thresholds.RetentionDays(ctx, status)
		if err != nil {
			return rejected(err), err
		}
		if days > 0 {
			enabled++
		}
	}
	if enabled == 0 {
		s.logger.InfoContext(ctx, "history retention disabled for all terminal statuses")
		return SweepResult{}, nil
	}

	var total SweepResult
	for _, status := range terminal {
		result, err := s.Remove(ctx, RetentionInput{SyncStatus: status, StoreIDs: storeIDs})
		total.merge(result)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *HistoryRetentionService) remove(ctx context.Context, row domain.History, result *SweepResult) {
	err := s.history.Delete(ctx, row)
	if s.opts.metrics != nil {
		s.opts.metrics.RecordSweepItem(ctx, sweepHistoryRetention, err == nil)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to delete sync history",
			"history_id", row.EntityID,
			"sync_order_id", row.SyncOrderID,
			"error", err,
		)
		result.failed("history %d: %v", row.EntityID, err)
		return
	}
	result.succeeded()
}
