package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

const historyColumns = `h.entity_id, h.sync_order_id, h.timestamp, h.action, h.via, h.result, h.additional_information`

type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

func scanHistory(row pgx.Row) (*domain.History, error) {
	var h domain.History
	var action, result string
	if err := row.Scan(
		&h.EntityID,
		&h.SyncOrderID,
		&h.Timestamp,
		&action,
		&h.Via,
		&result,
		&h.AdditionalInformation,
	); err != nil {
		return nil, err
	}
	h.Action = domain.Action(action)
	h.Result = domain.Result(result)
	h.Timestamp = h.Timestamp.UTC()
	return &h, nil
}

func (r *HistoryRepository) GetByID(ctx context.Context, id int64) (*domain.History, error) {
	query := `SELECT ` + historyColumns + ` FROM sync_order_history h WHERE h.entity_id = $1`

	h, err := scanHistory(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select history: %w", err)
	}
	return h, nil
}

// Save appends a history row. Rows must reference a persisted sync order.
func (r *HistoryRepository) Save(ctx context.Context, history domain.History) (*domain.History, error) {
	if history.Timestamp.IsZero() {
		history.Timestamp = time.Now().UTC()
	}
	info := history.AdditionalInformation
	if info == nil {
		info = map[string]any{}
	}

	var err error
	if history.EntityID == 0 {
		query := `
			INSERT INTO sync_order_history (sync_order_id, timestamp, action, via, result, additional_information)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING entity_id
		`
		err = r.pool.QueryRow(ctx, query,
			history.SyncOrderID,
			history.Timestamp,
			string(history.Action),
			history.Via,
			string(history.Result),
			info,
		).Scan(&history.EntityID)
	} else {
		query := `
			INSERT INTO sync_order_history (entity_id, sync_order_id, timestamp, action, via, result, additional_information)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (entity_id) DO UPDATE
			SET sync_order_id = EXCLUDED.sync_order_id,
			    timestamp = EXCLUDED.timestamp,
			    action = EXCLUDED.action,
			    via = EXCLUDED.via,
			    result = EXCLUDED.result,
			    additional_information = EXCLUDED.additional_information
		`
		_, err = r.pool.Exec(ctx, query,
			history.EntityID,
			history.SyncOrderID,
			history.Timestamp,
			string(history.Action),
			history.Via,
			string(history.Result),
			info,
		)
	}
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return nil, fmt.Errorf("save history: sync order %d: %w", history.SyncOrderID, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("save history: %w", err)
	}

	history.AdditionalInformation = info
	return &history, nil
}

func (r *HistoryRepository) Delete(ctx context.Context, history domain.History) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM sync_order_history WHERE entity_id = $1`, history.EntityID)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// List returns rows in id order, newest first when requested.
func (r *HistoryRepository) List(ctx context.Context, criteria ports.HistoryCriteria) (ports.HistoryList, error) {
	f := &filter{}
	if criteria.SyncOrderID != 0 {
		f.where("h.sync_order_id = " + f.arg(criteria.SyncOrderID))
	}
	if criteria.AfterEntityID > 0 {
		f.where("h.entity_id > " + f.arg(criteria.AfterEntityID))
	}
	if criteria.Before != nil {
		f.where("h.timestamp <= " + f.arg(criteria.Before.UTC()))
	}
	if criteria.SyncStatus != nil {
		f.where("so.status = " + f.arg(criteria.SyncStatus.String()))
	}
	if len(criteria.StoreIDs) > 0 {
		f.where("so.store_id = ANY(" + f.arg(criteria.StoreIDs) + ")")
	}

	from := ` FROM sync_order_history h JOIN sync_orders so ON so.entity_id = h.sync_order_id `

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+f.sql(), f.args...).Scan(&total); err != nil {
		return ports.HistoryList{}, fmt.Errorf("count history: %w", err)
	}

	query := `SELECT ` + historyColumns + from + f.sql()
	if criteria.NewestFirst {
		query += ` ORDER BY h.entity_id DESC`
	} else {
		query += ` ORDER BY h.entity_id`
	}
	if criteria.Limit > 0 {
		query += ` LIMIT ` + f.arg(criteria.Limit)
	}

	rows, err := r.pool.Query(ctx, query, f.args...)
	if err != nil {
		return ports.HistoryList{}, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	items := []domain.History{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return ports.HistoryList{}, fmt.Errorf("scan history: %w", err)
		}
		items = append(items, *h)
	}
	if err := rows.Err(); err != nil {
		return ports.HistoryList{}, fmt.Errorf("iterate history: %w", err)
	}

	return ports.HistoryList{Items: items, TotalCount: total}, nil
}

func (r *HistoryRepository) CreateFromSyncOrder(
	ctx context.Context,
	syncOrder domain.SyncOrder,
	action domain.Action,
	via string,
	result domain.Result,
	info map[string]any,
) (*domain.History, error) {
	if syncOrder.IsVirtual() {
		return nil, fmt.Errorf("create history: %w: sync order for order %d is not persisted", domain.ErrInvalidArgument, syncOrder.OrderID)
	}
	return r.Save(ctx, domain.NewHistory(syncOrder, action, via, result, info, time.Now()))
}

// ClearCache is a no-op; every call reads the table.
func (r *HistoryRepository) ClearCache() {}
