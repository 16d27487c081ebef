package models

import "time"

// CoinConversionRule defines how points convert into coins.
//
// At most one row is active at a time; the active row is mutated in
// place on updates, and "reset" zeroes the numbers without
// deactivating it. A zero PointsPerCoin means conversion is disabled.
type CoinConversionRule struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PointsPerCoin float64 `gorm:"not null;default:0"` // Points required per coin; 0 disables conversion.
	MinimumPoints float64 `gorm:"not null;default:0"` // Minimum balance required to convert.

	IsActive bool `gorm:"not null;default:true"` // Whether this rule is in force.

	UpdatedBy *uint64 `gorm:"index"`                // Admin who last touched the rule.
	Updater   *Admin  `gorm:"foreignKey:UpdatedBy"` // Admin relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
