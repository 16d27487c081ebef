package models

import "time"

// ReferralProgramRule configures point awards and limits for referrals.
//
// At most one row is active at a time. Persisting an active rule
// deactivates every other row in the same transaction, and a partial
// unique index on is_active backs the invariant against concurrent
// writers.
type ReferralProgramRule struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PointsForReferrer     int64   `gorm:"not null;default:0"` // Points credited to the referrer on completion.
	PointsForReferee      int64   `gorm:"not null;default:0"` // Points credited to the referee on completion.
	MinimumPurchaseAmount float64 `gorm:"not null;default:0"` // Purchase amount required to complete a referral.

	ExpiryDays          int `gorm:"not null;default:30"` // Days before a pending referral expires.
	MaxReferralsPerUser int `gorm:"not null;default:10"` // Referral cap per referrer.

	IsActive bool `gorm:"not null;default:true"` // Whether this rule is in force.

	UpdatedBy *uint64 `gorm:"index"`                // Admin who last touched the rule.
	Updater   *Admin  `gorm:"foreignKey:UpdatedBy"` // Admin relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
