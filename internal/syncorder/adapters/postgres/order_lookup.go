package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// OrderLookup reads host orders.
type OrderLookup struct {
	pool *pgxpool.Pool
}

func NewOrderLookup(pool *pgxpool.Pool) *OrderLookup {
	return &OrderLookup{pool: pool}
}

func (l *OrderLookup) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	query := `
		SELECT entity_id, store_id, increment_id, state, created_at
		FROM orders
		WHERE entity_id = $1
	`

	var order domain.Order
	err := l.pool.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.StoreID,
		&order.IncrementID,
		&order.State,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	return &order, nil
}
