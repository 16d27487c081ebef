package models

import "time"

// EarningEvent identifies the customer action a criteria rewards.
type EarningEvent string

// EarningEvent values.
const (
	// EarningEventPurchase rewards purchases.
	EarningEventPurchase EarningEvent = "purchase"
	// EarningEventSignup rewards account creation.
	EarningEventSignup EarningEvent = "signup"
	// EarningEventReview rewards product reviews.
	EarningEventReview EarningEvent = "review"
)

// EarningCriteria defines how many points a customer action earns.
type EarningCriteria struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name  string       `gorm:"type:text;not null"`                // Human-readable label.
	Event EarningEvent `gorm:"type:varchar(32);not null;index"`   // Rewarded event type.

	PointsPerUnit int64   `gorm:"not null;default:0"` // Points earned per event (or per amount unit for purchases).
	MinimumAmount float64 `gorm:"not null;default:0"` // Minimum spend before points accrue.

	Enabled bool `gorm:"not null;default:true"` // Whether the criteria applies.

	UpdatedBy *uint64 `gorm:"index"`                // Admin who last touched the criteria.
	Updater   *Admin  `gorm:"foreignKey:UpdatedBy"` // Admin relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
