package history

import (
	"context"
	"fmt"
	"time"

	"github.com/stylisthq/stylist-server/internal/models"
	"gorm.io/gorm"
)

// GormStore persists history items in the primary database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Name identifies the backend.
func (s *GormStore) Name() string { return BackendDatabase }

// Save inserts a history item row.
func (s *GormStore) Save(ctx context.Context, item models.HistoryItem) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history: gorm store not initialized")
	}
	if errCreate := s.db.WithContext(ctx).Create(&item).Error; errCreate != nil {
		return fmt.Errorf("history: save: %w", errCreate)
	}
	return nil
}

// List returns up to MaxItems rows for the user, newest first.
func (s *GormStore) List(ctx context.Context, userID uint64) ([]models.HistoryItem, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history: gorm store not initialized")
	}
	var rows []models.HistoryItem
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(MaxItems).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("history: list: %w", errFind)
	}
	return rows, nil
}

// Count returns how many rows the user created inside the trailing window.
func (s *GormStore) Count(ctx context.Context, userID uint64, window time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("history: gorm store not initialized")
	}
	since := time.Now().UTC().Add(-window)
	var count int64
	if errCount := s.db.WithContext(ctx).
		Model(&models.HistoryItem{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error; errCount != nil {
		return 0, fmt.Errorf("history: count: %w", errCount)
	}
	return count, nil
}
