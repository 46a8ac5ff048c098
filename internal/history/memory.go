package history

import (
	"context"
	"sync"
	"time"

	"github.com/stylisthq/stylist-server/internal/models"
)

// MemoryStore keeps a bounded per-user history list in process memory.
//
// It serves as the local fallback when the database is unreachable. Items
// stored here are never reconciled back to the database.
type MemoryStore struct {
	mu    sync.Mutex
	items map[uint64][]models.HistoryItem
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uint64][]models.HistoryItem)}
}

// Name identifies the backend.
func (s *MemoryStore) Name() string { return BackendMemory }

// Save prepends an item to the user's list, trimming to MaxItems.
func (s *MemoryStore) Save(_ context.Context, item models.HistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append([]models.HistoryItem{item}, s.items[item.UserID]...)
	if len(list) > MaxItems {
		list = list[:MaxItems]
	}
	s.items[item.UserID] = list
	return nil
}

// List returns a copy of the user's list, newest first.
func (s *MemoryStore) List(_ context.Context, userID uint64) ([]models.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.items[userID]
	out := make([]models.HistoryItem, len(list))
	copy(out, list)
	return out, nil
}

// Count returns how many items the user created inside the trailing window.
func (s *MemoryStore) Count(_ context.Context, userID uint64, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := time.Now().UTC().Add(-window)
	var count int64
	for _, item := range s.items[userID] {
		if !item.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
