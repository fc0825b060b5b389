package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// LegacySource pages through legacy_order_items. Every line of an order is
// returned in the same page.
type LegacySource struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewLegacySource(pool *pgxpool.Pool, logger *slog.Logger) *LegacySource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LegacySource{pool: pool, logger: logger}
}

// FetchPage returns the rows of the next limit orders. Rows with a NULL
// order_item_id are skipped and logged. Rows with a NULL order_id can never
// be paged, so they are counted once on the first page of a store.
func (s *LegacySource) FetchPage(ctx context.Context, storeID int64, afterOrderID int64, limit int) (ports.LegacyPage, error) {
	var page ports.LegacyPage

	if afterOrderID == 0 {
		orphans, err := s.countNullOrderIDs(ctx, storeID)
		if err != nil {
			return page, err
		}
		if orphans > 0 {
			s.logger.WarnContext(ctx, "skipping legacy rows without order id",
				slog.Int64("store_id", storeID),
				slog.Int("rows", orphans),
			)
			page.Skipped += orphans
		}
	}

	query := `
		SELECT row_id, order_id, order_item_id, send
		FROM legacy_order_items
		WHERE store_id = $1
		  AND order_id IN (
		      SELECT DISTINCT order_id
		      FROM legacy_order_items
		      WHERE store_id = $1 AND order_id > $2
		      ORDER BY order_id
		      LIMIT $3
		  )
		ORDER BY order_id, row_id
	`

	rows, err := s.pool.Query(ctx, query, storeID, afterOrderID, limit)
	if err != nil {
		return page, fmt.Errorf("query legacy rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rowID       int64
			orderID     int64
			orderItemID *int64
			send        *string
		)
		if err := rows.Scan(&rowID, &orderID, &orderItemID, &send); err != nil {
			return page, fmt.Errorf("scan legacy row: %w", err)
		}
		if orderID > page.LastOrderID {
			page.LastOrderID = orderID
		}
		if orderItemID == nil {
			s.logger.WarnContext(ctx, "skipping legacy row without order item id",
				slog.Int64("row_id", rowID),
				slog.Int64("order_id", orderID),
				slog.Int64("store_id", storeID),
			)
			page.Skipped++
			continue
		}

		row := ports.LegacyRow{
			ports.LegacyKeyOrderID:     orderID,
			ports.LegacyKeyOrderItemID: *orderItemID,
		}
		if send != nil {
			row[ports.LegacyKeySend] = *send
		}
		page.Rows = append(page.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("iterate legacy rows: %w", err)
	}

	return page, nil
}

func (s *LegacySource) countNullOrderIDs(ctx context.Context, storeID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM legacy_order_items WHERE store_id = $1 AND order_id IS NULL`,
		storeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count legacy rows without order id: %w", err)
	}
	return count, nil
}
