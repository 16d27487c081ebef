package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records an administrator action against the API.
type AuditLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AdminID uint64 `gorm:"not null;index"`       // Acting administrator.
	Admin   Admin  `gorm:"foreignKey:AdminID"`   // Admin relation.

	Action      string `gorm:"type:varchar(128);not null;index"` // Action name, e.g. "coin_conversion.update".
	TargetModel string `gorm:"type:varchar(64);index"`           // Affected model name.
	TargetID    string `gorm:"type:varchar(64)"`                 // Affected row identifier, when known.

	Details datatypes.JSON `gorm:"type:jsonb"` // Request body or params captured for the action.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // When the action happened.
}
