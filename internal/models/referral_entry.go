package models

import "time"

// ReferralStatus is the lifecycle state of a referral entry.
type ReferralStatus string

// ReferralStatus values. Transitions are one-directional: pending
// entries become completed or expired and never revert.
const (
	// ReferralStatusPending marks an entry awaiting completion or expiry.
	ReferralStatusPending ReferralStatus = "pending"
	// ReferralStatusCompleted marks an entry whose points were credited.
	ReferralStatusCompleted ReferralStatus = "completed"
	// ReferralStatusExpired marks an entry that lapsed before completion.
	ReferralStatusExpired ReferralStatus = "expired"
)

// ReferralEntry records a referrer/referee relationship and its outcome.
type ReferralEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ReferrerID uint64 `gorm:"not null;index"`       // Referring customer.
	RefereeID  uint64 `gorm:"not null;uniqueIndex"` // Referred customer; one referral per referee, ever.

	Referrer Customer `gorm:"foreignKey:ReferrerID"` // Referrer relation.
	Referee  Customer `gorm:"foreignKey:RefereeID"`  // Referee relation.

	Status ReferralStatus `gorm:"type:varchar(16);not null;default:'pending';index"` // Lifecycle state.

	ReferrerPoints int64 `gorm:"not null;default:0"` // Points awarded to the referrer.
	RefereePoints  int64 `gorm:"not null;default:0"` // Points awarded to the referee.

	FirstLoginAt    *time.Time // When the referee first signed in through the link.
	FirstPurchaseAt *time.Time // When the referee made the qualifying purchase.
	CompletedAt     *time.Time // When the referral completed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp; expiry is measured from here.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}
