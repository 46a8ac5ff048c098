// Package history persists per-user generation results across a ranked
// chain of storage backends.
package history

import (
	"context"
	"time"

	"github.com/stylisthq/stylist-server/internal/models"
)

// MaxItems caps how many history items are kept and returned per user.
const MaxItems = 20

// Backend names used to tag which store served a call.
const (
	// BackendDatabase tags results served by the remote database store.
	BackendDatabase = "database"
	// BackendMemory tags results served by the local in-memory fallback.
	BackendMemory = "memory"
)

// Store persists and reads back history items for one backend.
type Store interface {
	// Save inserts a history item.
	Save(ctx context.Context, item models.HistoryItem) error
	// List returns up to MaxItems items for the user, newest first.
	List(ctx context.Context, userID uint64) ([]models.HistoryItem, error)
	// Count returns how many items the user created inside the trailing window.
	Count(ctx context.Context, userID uint64, window time.Duration) (int64, error)
	// Name identifies the backend for result tagging.
	Name() string
}
