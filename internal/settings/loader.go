package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/perkbase/loyalty-admin/internal/models"
	"gorm.io/gorm"
)

// RefreshDBConfigSnapshot reloads the loyalty settings table into the
// in-memory snapshot. It runs at startup and after every settings
// update so that referral link bases, sweep intervals and retention
// windows take effect without a restart.
func RefreshDBConfigSnapshot(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	var newest time.Time
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if at := row.UpdatedAt.UTC(); at.After(newest) {
			newest = at
		}
	}

	StoreDBConfig(newest, values)
	return nil
}
