//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/dejobratic/ordersync/internal/checkpoint/postgres"
	"github.com/dejobratic/ordersync/internal/database/dbtest"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

func TestStoreSaveAndGet(t *testing.T) {
	pool := dbtest.NewPool(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	checkpoint := ports.Checkpoint{
		Key:         "legacy_migration:store:1",
		LastOrderID: 42,
	}

	if err := store.Save(ctx, checkpoint); err != nil {
		t.Fatalf("failed to save checkpoint: %v", err)
	}

	retrieved, err := store.Get(ctx, checkpoint.Key)
	if err != nil {
		t.Fatalf("failed to get checkpoint: %v", err)
	}

	if retrieved == nil {
		t.Fatal("expected checkpoint, got nil")
	}

	if retrieved.LastOrderID != checkpoint.LastOrderID {
		t.Errorf("expected last order id %d, got %d", checkpoint.LastOrderID, retrieved.LastOrderID)
	}

	if retrieved.Completed {
		t.Error("expected checkpoint not to be completed")
	}

	if retrieved.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}
}

func TestStoreGet_NotFound(t *testing.T) {
	pool := dbtest.NewPool(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	retrieved, err := store.Get(ctx, "nonexistent-key")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if retrieved != nil {
		t.Errorf("expected nil checkpoint, got %v", retrieved)
	}
}

func TestStoreSave_Overwrites(t *testing.T) {
	pool := dbtest.NewPool(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	key := "legacy_migration:store:2"

	if err := store.Save(ctx, ports.Checkpoint{Key: key, LastOrderID: 10}); err != nil {
		t.Fatalf("failed to save first checkpoint: %v", err)
	}

	if err := store.Save(ctx, ports.Checkpoint{Key: key, LastOrderID: 20, Completed: true}); err != nil {
		t.Fatalf("failed to save second checkpoint: %v", err)
	}

	retrieved, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("failed to get checkpoint: %v", err)
	}

	if retrieved.LastOrderID != 20 || !retrieved.Completed {
		t.Errorf("expected progress to advance to 20/completed, got %d/%v", retrieved.LastOrderID, retrieved.Completed)
	}
}
