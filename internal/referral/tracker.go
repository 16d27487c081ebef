package referral

import (
	"context"
	"time"

	"github.com/perkbase/loyalty-admin/internal/models"
	"github.com/perkbase/loyalty-admin/internal/rules"
	"github.com/perkbase/loyalty-admin/internal/tiers"
	"gorm.io/gorm"
)

// Tracker owns referral entry rows and their one-way status
// transitions: pending entries become completed or expired, and
// terminal entries never change again.
type Tracker struct {
	db    *gorm.DB
	rules *rules.Store
}

// NewTracker constructs a referral entry tracker.
func NewTracker(db *gorm.DB, ruleStore *rules.Store) *Tracker {
	return &Tracker{db: db, rules: ruleStore}
}

// CheckExpiry expires a pending entry whose window has lapsed under
// the active program rule. Completed and expired entries are left
// untouched; the operation is idempotent.
func (t *Tracker) CheckExpiry(ctx context.Context, entry *models.ReferralEntry) error {
	if entry == nil || entry.Status != models.ReferralStatusPending {
		return nil
	}

	rule, errRule := t.rules.ActiveReferralRule(ctx)
	if errRule != nil {
		return errRule
	}

	now := time.Now().UTC()
	expiresAt := entry.CreatedAt.Add(time.Duration(rule.ExpiryDays) * 24 * time.Hour)
	if !now.After(expiresAt) {
		return nil
	}

	// The status guard in the WHERE clause keeps a concurrent
	// completion from being overwritten by expiry.
	res := t.db.WithContext(ctx).Model(&models.ReferralEntry{}).
		Where("id = ? AND status = ?", entry.ID, models.ReferralStatusPending).
		Updates(map[string]any{"status": models.ReferralStatusExpired, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		entry.Status = models.ReferralStatusExpired
		entry.UpdatedAt = now
	}
	return nil
}

// Complete finalizes a pending entry, copying the program's point
// values onto it and crediting both customers in one transaction.
func (t *Tracker) Complete(ctx context.Context, entry *models.ReferralEntry, rule *models.ReferralProgramRule, purchaseAmount float64) error {
	if entry == nil || rule == nil {
		return ErrNotFound
	}
	if entry.Status != models.ReferralStatusPending {
		return ErrAlreadyFinal
	}
	if purchaseAmount < rule.MinimumPurchaseAmount {
		return ErrPurchaseTooSmall
	}

	now := time.Now().UTC()
	errTx := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ReferralEntry{}).
			Where("id = ? AND status = ?", entry.ID, models.ReferralStatusPending).
			Updates(map[string]any{
				"status":            models.ReferralStatusCompleted,
				"completed_at":      now,
				"first_purchase_at": now,
				"referrer_points":   rule.PointsForReferrer,
				"referee_points":    rule.PointsForReferee,
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyFinal
		}

		if errCredit := t.creditPoints(ctx, tx, entry.ReferrerID, rule.PointsForReferrer, now); errCredit != nil {
			return errCredit
		}
		return t.creditPoints(ctx, tx, entry.RefereeID, rule.PointsForReferee, now)
	})
	if errTx != nil {
		return errTx
	}

	entry.Status = models.ReferralStatusCompleted
	entry.CompletedAt = &now
	entry.FirstPurchaseAt = &now
	entry.ReferrerPoints = rule.PointsForReferrer
	entry.RefereePoints = rule.PointsForReferee
	entry.UpdatedAt = now
	return nil
}

// CountByReferrer counts all entries for a referrer, regardless of status.
func (t *Tracker) CountByReferrer(ctx context.Context, referrerID uint64) (int64, error) {
	var count int64
	errCount := t.db.WithContext(ctx).Model(&models.ReferralEntry{}).
		Where("referrer_id = ?", referrerID).
		Count(&count).Error
	if errCount != nil {
		return 0, errCount
	}
	return count, nil
}

// creditPoints adds points to a customer balance and recomputes the tier.
func (t *Tracker) creditPoints(ctx context.Context, tx *gorm.DB, customerID uint64, points int64, now time.Time) error {
	if points == 0 {
		return nil
	}
	res := tx.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Updates(map[string]any{
			"points":     gorm.Expr("points + ?", points),
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}

	var customer models.Customer
	if errFind := tx.Select("id", "points").First(&customer, customerID).Error; errFind != nil {
		return errFind
	}
	tierName, errTier := tiers.ForPoints(ctx, tx, customer.Points)
	if errTier != nil {
		return errTier
	}
	return tx.Model(&models.Customer{}).Where("id = ?", customerID).
		Update("tier", tierName).Error
}
