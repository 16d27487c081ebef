package models

import (
	"time"

	"gorm.io/datatypes"
)

// Offer is a merchant promotion redeemable with points.
type Offer struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Merchant    string `gorm:"type:text;not null;index"` // Merchant name.
	Title       string `gorm:"type:text;not null"`       // Offer headline.
	Description string `gorm:"type:text"`                // Offer details.

	RequiredTier string `gorm:"type:varchar(64)"`   // Minimum tier name, empty for all tiers.
	PointsCost   int64  `gorm:"not null;default:0"` // Points deducted on redemption.

	ValidFrom  *time.Time // Start of the validity window.
	ValidUntil *time.Time // End of the validity window.

	Metadata datatypes.JSON `gorm:"type:jsonb"` // Merchant-supplied extras in JSON.

	Enabled bool `gorm:"not null;default:true"` // Whether the offer is visible.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
