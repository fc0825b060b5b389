package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

const syncOrderColumns = `so.entity_id, so.order_id, so.store_id, so.status, so.attempts, so.created_at, so.updated_at`

type SyncOrderRepository struct {
	pool *pgxpool.Pool
}

func NewSyncOrderRepository(pool *pgxpool.Pool) *SyncOrderRepository {
	return &SyncOrderRepository{pool: pool}
}

func scanSyncOrder(row pgx.Row) (*domain.SyncOrder, error) {
	var so domain.SyncOrder
	var status string
	if err := row.Scan(
		&so.EntityID,
		&so.OrderID,
		&so.StoreID,
		&status,
		&so.Attempts,
		&so.CreatedAt,
		&so.UpdatedAt,
	); err != nil {
		return nil, err
	}
	so.Status = domain.ParseStatus(status)
	return &so, nil
}

func (r *SyncOrderRepository) GetByOrderID(ctx context.Context, orderID int64) (*domain.SyncOrder, error) {
	query := `SELECT ` + syncOrderColumns + ` FROM sync_orders so WHERE so.order_id = $1`

	so, err := scanSyncOrder(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select sync order by order id: %w", err)
	}
	return so, nil
}

func (r *SyncOrderRepository) GetByID(ctx context.Context, id int64) (*domain.SyncOrder, error) {
	query := `SELECT ` + syncOrderColumns + ` FROM sync_orders so WHERE so.entity_id = $1`

	so, err := scanSyncOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select sync order: %w", err)
	}
	return so, nil
}

// Save inserts virtual records and updates persisted ones. order_id cannot
// be changed by an update.
func (r *SyncOrderRepository) Save(ctx context.Context, syncOrder domain.SyncOrder) (*domain.SyncOrder, error) {
	if err := syncOrder.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if syncOrder.IsVirtual() {
		query := `
			INSERT INTO sync_orders (order_id, store_id, status, attempts, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING entity_id, created_at, updated_at
		`
		err := r.pool.QueryRow(ctx, query,
			syncOrder.OrderID,
			syncOrder.StoreID,
			syncOrder.Status.String(),
			syncOrder.Attempts,
			now,
		).Scan(&syncOrder.EntityID, &syncOrder.CreatedAt, &syncOrder.UpdatedAt)
		if err != nil {
			if pgErrorCode(err) == pgUniqueViolation {
				return nil, fmt.Errorf("insert sync order: order %d is already tracked: %w", syncOrder.OrderID, err)
			}
			return nil, fmt.Errorf("insert sync order: %w", err)
		}
		return &syncOrder, nil
	}

	query := `
		UPDATE sync_orders
		SET store_id = $1, status = $2, attempts = $3, updated_at = $4
		WHERE entity_id = $5 AND order_id = $6
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		syncOrder.StoreID,
		syncOrder.Status.String(),
		syncOrder.Attempts,
		now,
		syncOrder.EntityID,
		syncOrder.OrderID,
	).Scan(&syncOrder.CreatedAt, &syncOrder.UpdatedAt)
	if err == nil {
		return &syncOrder, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update sync order: %w", err)
	}

	if _, getErr := r.GetByID(ctx, syncOrder.EntityID); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("update sync order: %w: order_id is immutable", domain.ErrInvalidArgument)
}

// Delete removes the record. History rows go with it.
func (r *SyncOrderRepository) Delete(ctx context.Context, syncOrder domain.SyncOrder) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM sync_orders WHERE entity_id = $1`, syncOrder.EntityID)
	if err != nil {
		return fmt.Errorf("delete sync order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// List returns records matching the criteria ordered by entity id. Keyset
// paging is used when AfterEntityID is set, or when no page number is given.
func (r *SyncOrderRepository) List(ctx context.Context, criteria ports.SearchCriteria) (ports.SyncOrderList, error) {
	f := syncOrderFilter(criteria)

	var total int
	countQuery := `SELECT COUNT(*) FROM sync_orders so ` + f.sql()
	if err := r.pool.QueryRow(ctx, countQuery, f.args...).Scan(&total); err != nil {
		return ports.SyncOrderList{}, fmt.Errorf("count sync orders: %w", err)
	}

	keyset := criteria.AfterEntityID > 0 || (criteria.CurrentPage <= 0 && criteria.PageSize > 0)
	if keyset {
		f.where("so.entity_id > " + f.arg(criteria.AfterEntityID))
	}

	query := `SELECT ` + syncOrderColumns + ` FROM sync_orders so ` + f.sql() + ` ORDER BY so.entity_id`
	if criteria.PageSize > 0 {
		query += ` LIMIT ` + f.arg(criteria.PageSize)
		if !keyset {
			page := criteria.CurrentPage
			if page <= 0 {
				page = 1
			}
			query += ` OFFSET ` + f.arg((page-1)*criteria.PageSize)
		}
	}

	rows, err := r.pool.Query(ctx, query, f.args...)
	if err != nil {
		return ports.SyncOrderList{}, fmt.Errorf("query sync orders: %w", err)
	}
	defer rows.Close()

	items := []domain.SyncOrder{}
	for rows.Next() {
		so, err := scanSyncOrder(rows)
		if err != nil {
			return ports.SyncOrderList{}, fmt.Errorf("scan sync order: %w", err)
		}
		items = append(items, *so)
	}
	if err := rows.Err(); err != nil {
		return ports.SyncOrderList{}, fmt.Errorf("iterate sync orders: %w", err)
	}

	return ports.SyncOrderList{Items: items, TotalCount: total}, nil
}

// ClearCache is a no-op; every call reads the table.
func (r *SyncOrderRepository) ClearCache() {}

func syncOrderFilter(c ports.SearchCriteria) *filter {
	f := &filter{}
	if len(c.OrderIDs) > 0 {
		f.where("so.order_id = ANY(" + f.arg(c.OrderIDs) + ")")
	}
	if len(c.SyncStatuses) > 0 {
		f.where("so.status = ANY(" + f.arg(statusStrings(c.SyncStatuses)) + ")")
	}
	if len(c.StoreIDs) > 0 {
		f.where("so.store_id = ANY(" + f.arg(c.StoreIDs) + ")")
	}

	storeIDs := make([]int64, 0, len(c.ExcludedOrderStates))
	for storeID := range c.ExcludedOrderStates {
		storeIDs = append(storeIDs, storeID)
	}
	sort.Slice(storeIDs, func(i, j int) bool { return storeIDs[i] < storeIDs[j] })
	for _, storeID := range storeIDs {
		states := c.ExcludedOrderStates[storeID]
		if len(states) == 0 {
			continue
		}
		f.where(fmt.Sprintf(
			"NOT (so.store_id = %s AND EXISTS (SELECT 1 FROM orders o WHERE o.entity_id = so.order_id AND o.state = ANY(%s)))",
			f.arg(storeID), f.arg(states),
		))
	}

	if c.LastActivityBefore != nil {
		f.where(`COALESCE(
			(SELECT MAX(h.timestamp) FROM sync_order_history h WHERE h.sync_order_id = so.entity_id),
			so.updated_at
		) < ` + f.arg(c.LastActivityBefore.UTC()))
	}
	return f
}
