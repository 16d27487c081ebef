package models

import "time"

// Customer represents a loyalty program member.
type Customer struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name  string `gorm:"type:text;not null"`             // Display name.
	Email string `gorm:"type:text;not null;uniqueIndex"` // Unique contact email.
	Phone string `gorm:"type:varchar(32)"`               // Optional phone number.

	Points int64  `gorm:"not null;default:0"` // Current point balance.
	Tier   string `gorm:"type:varchar(64)"`   // Current tier name, recomputed on balance changes.

	Active bool `gorm:"not null;default:true"` // Whether the customer participates in the program.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
