package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// ScopedConfig reads core_config_data. Store-scoped lookups fall back to the
// default scope; a NULL value counts as unset.
type ScopedConfig struct {
	pool *pgxpool.Pool
}

func NewScopedConfig(pool *pgxpool.Pool) *ScopedConfig {
	return &ScopedConfig{pool: pool}
}

func (c *ScopedConfig) GetValue(ctx context.Context, path string, scope ports.Scope, scopeID int64) (string, bool, error) {
	query := `
		SELECT value
		FROM core_config_data
		WHERE path = $1
		  AND ((scope = $2 AND scope_id = $3) OR (scope = $4 AND scope_id = 0))
		  AND value IS NOT NULL
		ORDER BY CASE WHEN scope = $2 THEN 0 ELSE 1 END
		LIMIT 1
	`

	var value string
	err := c.pool.QueryRow(ctx, query, path, string(scope), scopeID, string(ports.ScopeDefault)).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select config value %q: %w", path, err)
	}
	return value, true, nil
}

// SetValue upserts a value. Used by tooling and tests.
func (c *ScopedConfig) SetValue(ctx context.Context, path string, scope ports.Scope, scopeID int64, value string) error {
	query := `
		INSERT INTO core_config_data (scope, scope_id, path, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, scope_id, path) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := c.pool.Exec(ctx, query, string(scope), scopeID, path, value); err != nil {
		return fmt.Errorf("upsert config value %q: %w", path, err)
	}
	return nil
}

// StoreRepository lists active storefronts. The admin store (id 0) is never
// returned.
type StoreRepository struct {
	pool *pgxpool.Pool
}

func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

func (r *StoreRepository) ListStoreIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT store_id FROM stores WHERE is_active AND store_id > 0 ORDER BY store_id`)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect store ids: %w", err)
	}
	return ids, nil
}
