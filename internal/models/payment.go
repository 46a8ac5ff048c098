package models

import "time"

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus int

// PaymentStatus constants define payment lifecycle states.
const (
	// PaymentStatusPending marks a payment awaiting its one resolution check.
	PaymentStatusPending PaymentStatus = 1
	// PaymentStatusPaid marks a payment confirmed by the gateway.
	PaymentStatusPaid PaymentStatus = 2
	// PaymentStatusUnpaid marks a payment whose single check did not confirm it.
	PaymentStatusUnpaid PaymentStatus = 3
)

// Payment records a redirect-based gateway payment for the premium upsell.
type Payment struct {
	ID string `gorm:"type:text;primaryKey"` // Gateway-assigned payment ID.

	UserID uint64 `gorm:"not null;index"`    // Related user ID.
	User   User   `gorm:"foreignKey:UserID"` // Related user record.

	AmountCents int64         `gorm:"not null"`                 // Amount in minor currency units.
	Currency    string        `gorm:"type:varchar(8);not null"` // ISO currency code.
	RedirectURL string        `gorm:"type:text"`                // Gateway confirmation URL handed to the client.
	Status      PaymentStatus `gorm:"not null;default:1;index"` // Current payment status.

	CheckedAt *time.Time // When the single gateway status check happened.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
