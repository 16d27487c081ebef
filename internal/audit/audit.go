package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/perkbase/loyalty-admin/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorder writes audit log rows for admin actions. Writes are
// best-effort: failures are logged and never surfaced to the caller.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs an audit recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record persists one audit entry. details may be nil.
func (r *Recorder) Record(ctx context.Context, adminID uint64, action, targetModel, targetID string, details any) {
	if r == nil || r.db == nil || adminID == 0 {
		return
	}

	var payload datatypes.JSON
	if details != nil {
		raw, errMarshal := json.Marshal(details)
		if errMarshal != nil {
			log.Warnf("audit: marshal details for %s: %v", action, errMarshal)
		} else {
			payload = datatypes.JSON(raw)
		}
	}

	entry := models.AuditLog{
		AdminID:     adminID,
		Action:      action,
		TargetModel: targetModel,
		TargetID:    targetID,
		Details:     payload,
		CreatedAt:   time.Now().UTC(),
	}

	// Detached context with its own timeout so an aborted request
	// cannot cancel the audit write.
	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if errCreate := r.db.WithContext(dbCtx).Create(&entry).Error; errCreate != nil {
		log.Warnf("audit: record %s: %v", action, errCreate)
	}
}
