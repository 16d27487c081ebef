package referral

import (
	"context"
	"errors"
	"time"

	"github.com/perkbase/loyalty-admin/internal/models"
	"github.com/perkbase/loyalty-admin/internal/rules"
	internalsettings "github.com/perkbase/loyalty-admin/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultSweepInterval = time.Hour

// ExpirySweeper periodically expires overdue pending referral entries
// so entries lapse even when nobody tracks them individually.
type ExpirySweeper struct {
	db       *gorm.DB
	rules    *rules.Store
	interval time.Duration
}

// NewExpirySweeper constructs an expiry sweeper.
func NewExpirySweeper(db *gorm.DB, ruleStore *rules.Store) *ExpirySweeper {
	if db == nil || ruleStore == nil {
		return nil
	}
	return &ExpirySweeper{
		db:       db,
		rules:    ruleStore,
		interval: defaultSweepInterval,
	}
}

// Start launches the sweep loop in a background goroutine.
func (s *ExpirySweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("referral expiry sweeper started (interval=%s)", s.interval)
}

func (s *ExpirySweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.sweepOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(s.effectiveInterval())
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

// sweepOnce expires every pending entry older than the active rule's
// expiry window. A missing rule means nothing can expire.
func (s *ExpirySweeper) sweepOnce(ctx context.Context) {
	rule, errRule := s.rules.ActiveReferralRule(ctx)
	if errRule != nil {
		if !errors.Is(errRule, rules.ErrNotConfigured) {
			log.Warnf("referral sweep: load active rule: %v", errRule)
		}
		return
	}

	now := time.Now().UTC()
	cutoff := now.Add(-time.Duration(rule.ExpiryDays) * 24 * time.Hour)
	res := s.db.WithContext(ctx).Model(&models.ReferralEntry{}).
		Where("status = ? AND created_at < ?", models.ReferralStatusPending, cutoff).
		Updates(map[string]any{"status": models.ReferralStatusExpired, "updated_at": now})
	if res.Error != nil {
		log.Warnf("referral sweep: expire entries: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Infof("referral sweep: expired %d entries", res.RowsAffected)
	}
}

// effectiveInterval reads the sweep interval from DB settings with the
// configured default as fallback.
func (s *ExpirySweeper) effectiveInterval() time.Duration {
	seconds := internalsettings.DefaultReferralSweepIntervalSeconds
	if parsed, ok := internalsettings.DBConfigInt(internalsettings.ReferralSweepIntervalSecondsKey); ok && parsed > 0 {
		seconds = parsed
	}
	if seconds <= 0 {
		return s.interval
	}
	return time.Duration(seconds) * time.Second
}
