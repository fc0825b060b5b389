package legacy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dejobratic/ordersync/internal/syncorder/app/commands"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// DefaultVia is recorded on rows written by the migration.
const DefaultVia = "legacy_migration"

const defaultPageSize = 500

// CheckpointKey is the progress key of a store.
func CheckpointKey(storeID int64) string {
	return fmt.Sprintf("legacy_migration:store:%d", storeID)
}

// Report summarizes the migration of one store.
type Report struct {
	StoreID       int64 `json:"store_id"`
	Orders        int   `json:"orders"`
	Migrated      int   `json:"migrated"`
	Failed        int   `json:"failed"`
	NotRegistered int   `json:"not_registered"`
	SkippedRows   int   `json:"skipped_rows"`
	Pages         int   `json:"pages"`
	AlreadyDone   bool  `json:"already_done"`
}

// Migrator drives legacy orders through the live sync actions.
type Migrator struct {
	handler     commands.Handler
	history     ports.HistoryRepository
	source      ports.LegacySource
	stores      ports.StoreRepository
	checkpoints ports.CheckpointStore
	logger      *slog.Logger
	pageSize    int
	via         string
}

// NewMigrator constructs a Migrator. pageSize is the number of orders read
// per page.
func NewMigrator(
	handler commands.Handler,
	history ports.HistoryRepository,
	source ports.LegacySource,
	stores ports.StoreRepository,
	checkpoints ports.CheckpointStore,
	logger *slog.Logger,
	pageSize int,
) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Migrator{
		handler:     handler,
		history:     history,
		source:      source,
		stores:      stores,
		checkpoints: checkpoints,
		logger:      logger,
		pageSize:    pageSize,
		via:         DefaultVia,
	}
}

// ExecuteForStoreID migrates one store, resuming after the last checkpoint.
// Failures on single orders are counted. Invalid rows of every page are
// returned together once the store has been walked.
func (m *Migrator) ExecuteForStoreID(ctx context.Context, storeID int64) (Report, error) {
	report := Report{StoreID: storeID}
	key := CheckpointKey(storeID)

	checkpoint, err := m.checkpoints.Get(ctx, key)
	if err != nil {
		return report, fmt.Errorf("load checkpoint: %w", err)
	}
	if checkpoint != nil && checkpoint.Completed {
		m.logger.InfoContext(ctx, "legacy migration already completed", "store_id", storeID)
		report.AlreadyDone = true
		return report, nil
	}

	var after int64
	if checkpoint != nil {
		after = checkpoint.LastOrderID
		m.logger.InfoContext(ctx, "resuming legacy migration", "store_id", storeID, "after_order_id", after)
	}

	var rowErrors []domain.RowError
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page, err := m.source.FetchPage(ctx, storeID, after, m.pageSize)
		if err != nil {
			return report, fmt.Errorf("fetch legacy page after order %d: %w", after, err)
		}
		if page.Skipped > 0 {
			m.logger.WarnContext(ctx, "legacy source skipped rows without order or item id",
				"store_id", storeID,
				"after_order_id", after,
				"rows", page.Skipped,
			)
			report.SkippedRows += page.Skipped
		}
		if page.Done() {
			break
		}
		if page.LastOrderID <= after {
			return report, fmt.Errorf("legacy page after order %d did not advance (last order %d)", after, page.LastOrderID)
		}
		report.Pages++

		batch, err := ParseRows(page.Rows)
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			for _, rowErr := range validation.Rows {
				rowErr.Index += offset
				rowErrors = append(rowErrors, rowErr)
			}
		} else if err != nil {
			return report, err
		}
		offset += len(page.Rows)

		report.Failed += len(batch.Rejected)
		report.Orders += len(batch.Rejected)

		for _, group := range batch.Groups() {
			report.Orders++
			m.migrateOrder(ctx, storeID, group, &report)
		}

		// Pages whose rows were all skipped still move the cursor.
		after = page.LastOrderID
		if err := m.checkpoints.Save(ctx, ports.Checkpoint{Key: key, LastOrderID: after}); err != nil {
			return report, fmt.Errorf("save checkpoint: %w", err)
		}
	}

	if len(rowErrors) > 0 {
		err := &domain.ValidationError{Rows: rowErrors}
		m.logger.ErrorContext(ctx, "legacy migration found invalid rows",
			"store_id", storeID,
			"rows", len(rowErrors),
			"error", err,
		)
		return report, err
	}

	if err := m.checkpoints.Save(ctx, ports.Checkpoint{Key: key, LastOrderID: after, Completed: true}); err != nil {
		return report, fmt.Errorf("save checkpoint: %w", err)
	}

	m.logger.InfoContext(ctx, "legacy migration completed",
		"store_id", storeID,
		"orders", report.Orders,
		"migrated", report.Migrated,
		"failed", report.Failed,
		"not_registered", report.NotRegistered,
		"skipped_rows", report.SkippedRows,
		"pages", report.Pages,
	)
	return report, nil
}

// ExecuteForAllStores migrates every store. A failing store does not stop
// the others; their errors are joined.
func (m *Migrator) ExecuteForAllStores(ctx context.Context) ([]Report, error) {
	storeIDs, err := m.stores.ListStoreIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	reports := make([]Report, 0, len(storeIDs))
	var errs []error
	for _, storeID := range storeIDs {
		report, err := m.ExecuteForStoreID(ctx, storeID)
		reports = append(reports, report)
		if err != nil {
			if ctx.Err() != nil {
				return reports, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("store %d: %w", storeID, err))
		}
	}
	return reports, errors.Join(errs...)
}

func (m *Migrator) migrateOrder(ctx context.Context, storeID int64, group Group, report *Report) {
	status := DeriveStatus(group.Sends)
	if status == domain.StatusNotRegistered {
		m.logger.WarnContext(ctx, "legacy order has no usable send flags",
			"order_id", group.OrderID,
			"store_id", storeID,
			"sends", group.Sends,
		)
		report.NotRegistered++
		return
	}

	var (
		result commands.ActionResult
		err    error
	)
	if status.CanInitiateSync() && status != domain.StatusPartial {
		result, err = m.handler.Queue(ctx, commands.QueueCommand{OrderID: group.OrderID, Via: m.via})
	} else {
		result, err = m.handler.MarkProcessed(ctx, commands.MarkProcessedCommand{
			OrderID:      group.OrderID,
			ResultStatus: status,
			Via:          m.via,
		})
	}
	if err != nil || result.SyncOrder == nil || result.SyncOrder.IsVirtual() {
		if err == nil {
			err = errors.New(strings.Join(result.Messages, "; "))
		}
		m.logger.WarnContext(ctx, "failed to migrate legacy order",
			"order_id", group.OrderID,
			"store_id", storeID,
			"new_status", status.String(),
			"error", err,
		)
		report.Failed++
		return
	}

	original := ""
	if result.History != nil {
		original, _ = result.History.AdditionalInformation[domain.InfoOriginalStatus].(string)
	}
	sends := make([]int, 0, len(group.Sends))
	for _, s := range group.Sends {
		sends = append(sends, int(s))
	}
	info := map[string]any{
		domain.InfoOriginalStatus: original,
		domain.InfoNewStatus:      result.SyncOrder.Status.String(),
		"derived_status":          status.String(),
		"legacy_sends":            sends,
	}

	outcome := result.Outcome()
	if _, err := m.history.CreateFromSyncOrder(ctx, *result.SyncOrder, domain.ActionMigrate, m.via, outcome, info); err != nil {
		m.logger.WarnContext(ctx, "failed to write migrate history",
			"order_id", group.OrderID,
			"store_id", storeID,
			"error", err,
		)
		report.Failed++
		return
	}

	if outcome == domain.ResultError {
		report.Failed++
		return
	}
	report.Migrated++
}
