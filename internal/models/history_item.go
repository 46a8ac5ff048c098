package models

import (
	"time"

	"gorm.io/datatypes"
)

// HistoryItem records one completed try-on or edit with its analysis snapshot.
type HistoryItem struct {
	ID string `gorm:"type:text;primaryKey"` // UUID assigned at creation.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"` // Owning user record.

	StyleTitle    string `gorm:"type:text"`          // Label of the applied style or edit.
	OriginalImage string `gorm:"type:text;not null"` // Source image reference.
	ResultImage   string `gorm:"type:text"`          // Generated image reference, empty when generation produced none.

	Analysis datatypes.JSON `gorm:"type:jsonb"` // Analysis and recommendation snapshot active at creation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
