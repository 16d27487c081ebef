package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tier is a customer segment threshold based on accumulated points.
type Tier struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name          string `gorm:"type:varchar(64);not null;uniqueIndex"` // Unique tier name.
	MinimumPoints int64  `gorm:"not null;default:0"`                    // Balance threshold for the tier.

	Benefits datatypes.JSON `gorm:"type:jsonb"` // Arbitrary benefit descriptors in JSON.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
