package audit

import (
	"context"
	"time"

	"github.com/perkbase/loyalty-admin/internal/models"
	internalsettings "github.com/perkbase/loyalty-admin/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultRetentionInterval = 6 * time.Hour
	deleteBatchSize          = 5000
	maxDeleteBatchesPerRun   = 2000
)

// RetentionCleaner periodically deletes old rows from the audit_logs table.
type RetentionCleaner struct {
	db        *gorm.DB
	interval  time.Duration
	batchSize int
}

// NewRetentionCleaner constructs an audit retention cleaner.
func NewRetentionCleaner(db *gorm.DB) *RetentionCleaner {
	if db == nil {
		return nil
	}
	return &RetentionCleaner{
		db:        db,
		interval:  defaultRetentionInterval,
		batchSize: deleteBatchSize,
	}
}

// Start launches the cleanup loop in a background goroutine.
func (c *RetentionCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go c.run(ctx)
	log.Infof("audit retention cleaner started (interval=%s)", c.interval)
}

func (c *RetentionCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.cleanupOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// cleanupOnce deletes audit rows older than the configured retention
// in bounded batches. Retention 0 keeps everything.
func (c *RetentionCleaner) cleanupOnce(ctx context.Context) {
	retentionDays := internalsettings.DefaultAuditRetentionDays
	if parsed, ok := internalsettings.DBConfigInt(internalsettings.AuditRetentionDaysKey); ok && parsed >= 0 {
		retentionDays = parsed
	}
	if retentionDays <= 0 {
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted := int64(0)
	for batch := 0; batch < maxDeleteBatchesPerRun; batch++ {
		if ctx.Err() != nil {
			return
		}
		res := c.db.WithContext(ctx).
			Where("id IN (?)", c.db.Model(&models.AuditLog{}).
				Select("id").
				Where("created_at < ?", cutoff).
				Limit(c.batchSize)).
			Delete(&models.AuditLog{})
		if res.Error != nil {
			log.Warnf("audit retention: delete batch: %v", res.Error)
			return
		}
		deleted += res.RowsAffected
		if res.RowsAffected < int64(c.batchSize) {
			break
		}
	}
	if deleted > 0 {
		log.Infof("audit retention: deleted %d rows older than %s", deleted, cutoff.Format(time.RFC3339))
	}
}
