package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// Store retains migration checkpoints in memory.
type Store struct {
	mu    sync.RWMutex
	items map[string]ports.Checkpoint
	clock func() time.Time
}

// NewStore creates a new in-memory checkpoint store.
func NewStore() *Store {
	return &Store{items: make(map[string]ports.Checkpoint), clock: time.Now}
}

// Get returns the checkpoint for a key, or nil when none was saved.
func (s *Store) Get(_ context.Context, key string) (*ports.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	copy := value
	return &copy, nil
}

// Save stores or overwrites the checkpoint for its key.
func (s *Store) Save(_ context.Context, checkpoint ports.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	checkpoint.UpdatedAt = s.clock().UTC()
	s.items[checkpoint.Key] = checkpoint
	return nil
}
