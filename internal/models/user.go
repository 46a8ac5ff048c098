package models

import "time"

// User represents an end-user identity stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TelegramID *int64 `gorm:"uniqueIndex"` // Telegram account ID when externally verified.

	Username  string `gorm:"type:text;index"` // Telegram handle or generated guest name.
	Name      string `gorm:"type:text"`       // Display name.
	AvatarURL string `gorm:"type:text"`       // Optional avatar image URL.

	Guest   bool `gorm:"not null;default:false"` // Locally generated identity, not externally verified.
	Premium bool `gorm:"not null;default:false"` // Subscription entitlement flag.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
