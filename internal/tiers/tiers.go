package tiers

import (
	"context"
	"errors"

	"github.com/perkbase/loyalty-admin/internal/models"
	"gorm.io/gorm"
)

// ForPoints returns the highest tier whose threshold the balance
// meets, or an empty string when no tier applies.
func ForPoints(ctx context.Context, db *gorm.DB, points int64) (string, error) {
	var tier models.Tier
	errFind := db.WithContext(ctx).
		Where("minimum_points <= ?", points).
		Order("minimum_points DESC").
		First(&tier).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", errFind
	}
	return tier.Name, nil
}
