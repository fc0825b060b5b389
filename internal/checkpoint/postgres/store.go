package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, key string) (*ports.Checkpoint, error) {
	query := `
		SELECT key, last_order_id, completed, updated_at
		FROM sync_migration_checkpoints
		WHERE key = $1
	`

	var cp ports.Checkpoint
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&cp.Key,
		&cp.LastOrderID,
		&cp.Completed,
		&cp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select checkpoint: %w", err)
	}

	return &cp, nil
}

func (s *Store) Save(ctx context.Context, checkpoint ports.Checkpoint) error {
	query := `
		INSERT INTO sync_migration_checkpoints (key, last_order_id, completed, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET last_order_id = EXCLUDED.last_order_id,
		    completed = EXCLUDED.completed,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query, checkpoint.Key, checkpoint.LastOrderID, checkpoint.Completed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}

	return nil
}
