package rules

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/perkbase/loyalty-admin/internal/models"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrNotConfigured indicates no active rule exists for the requested type.
var ErrNotConfigured = errors.New("no active rule configured")

// Cache keys and TTL for active-rule lookups.
const (
	coinRuleCacheKey     = "rules:coin-conversion:active"
	referralRuleCacheKey = "rules:referral-program:active"
	ruleCacheTTL         = 5 * time.Minute
)

// Store owns the singleton "active rule" rows for coin conversion and
// the referral program. Every write goes through a transaction and,
// for referral rules, deactivates all other rows before persisting the
// active one; a partial unique index backs the invariant.
type Store struct {
	db    *gorm.DB
	cache *redis.Client // Optional; nil disables caching.
}

// NewStore constructs a rule store. cache may be nil.
func NewStore(db *gorm.DB, cache *redis.Client) *Store {
	return &Store{db: db, cache: cache}
}

// CoinRuleFields carries the mutable coin conversion rule values.
type CoinRuleFields struct {
	PointsPerCoin float64
	MinimumPoints float64
}

// ReferralRuleFields carries the mutable referral program rule values.
type ReferralRuleFields struct {
	PointsForReferrer     int64
	PointsForReferee      int64
	MinimumPurchaseAmount float64
	ExpiryDays            int
	MaxReferralsPerUser   int
}

// ActiveCoinRule returns the active coin conversion rule.
func (s *Store) ActiveCoinRule(ctx context.Context) (*models.CoinConversionRule, error) {
	var cached models.CoinConversionRule
	if s.cacheGet(ctx, coinRuleCacheKey, &cached) {
		return &cached, nil
	}

	var rule models.CoinConversionRule
	errFind := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&rule).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, errFind
	}
	s.cacheSet(ctx, coinRuleCacheKey, &rule)
	return &rule, nil
}

// ActiveReferralRule returns the active referral program rule.
func (s *Store) ActiveReferralRule(ctx context.Context) (*models.ReferralProgramRule, error) {
	var cached models.ReferralProgramRule
	if s.cacheGet(ctx, referralRuleCacheKey, &cached) {
		return &cached, nil
	}

	var rule models.ReferralProgramRule
	errFind := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&rule).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, errFind
	}
	s.cacheSet(ctx, referralRuleCacheKey, &rule)
	return &rule, nil
}

// UpsertCoinRule mutates the active coin rule in place, or creates the
// first one. Returns the resulting row and whether it was created.
func (s *Store) UpsertCoinRule(ctx context.Context, fields CoinRuleFields, adminID uint64) (*models.CoinConversionRule, bool, error) {
	var rule models.CoinConversionRule
	created := false

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errFind := tx.Where("is_active = ?", true).Order("updated_at DESC").First(&rule).Error
		if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return errFind
		}

		now := time.Now().UTC()
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			rule = models.CoinConversionRule{
				PointsPerCoin: fields.PointsPerCoin,
				MinimumPoints: fields.MinimumPoints,
				IsActive:      true,
				UpdatedBy:     &adminID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			created = true
			return tx.Create(&rule).Error
		}

		rule.PointsPerCoin = fields.PointsPerCoin
		rule.MinimumPoints = fields.MinimumPoints
		rule.UpdatedBy = &adminID
		rule.UpdatedAt = now
		return tx.Model(&models.CoinConversionRule{}).Where("id = ?", rule.ID).Updates(map[string]any{
			"points_per_coin": fields.PointsPerCoin,
			"minimum_points":  fields.MinimumPoints,
			"updated_by":      adminID,
			"updated_at":      now,
		}).Error
	})
	if errTx != nil {
		return nil, false, errTx
	}

	s.invalidate(ctx, coinRuleCacheKey)
	return &rule, created, nil
}

// ResetCoinRule zeroes the active coin rule's numbers without
// deactivating it; downstream conversion treats a zero rate as
// "conversion disabled".
func (s *Store) ResetCoinRule(ctx context.Context, adminID uint64) (*models.CoinConversionRule, error) {
	var rule models.CoinConversionRule

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errFind := tx.Where("is_active = ?", true).Order("updated_at DESC").First(&rule).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotConfigured
			}
			return errFind
		}

		now := time.Now().UTC()
		rule.PointsPerCoin = 0
		rule.MinimumPoints = 0
		rule.UpdatedBy = &adminID
		rule.UpdatedAt = now
		return tx.Model(&models.CoinConversionRule{}).Where("id = ?", rule.ID).Updates(map[string]any{
			"points_per_coin": 0,
			"minimum_points":  0,
			"updated_by":      adminID,
			"updated_at":      now,
		}).Error
	})
	if errTx != nil {
		return nil, errTx
	}

	s.invalidate(ctx, coinRuleCacheKey)
	return &rule, nil
}

// UpsertReferralRule mutates the active referral rule in place, or
// creates the first one. Other rows are deactivated first so the
// partial unique index never trips on the persisted active row.
func (s *Store) UpsertReferralRule(ctx context.Context, fields ReferralRuleFields, adminID uint64) (*models.ReferralProgramRule, bool, error) {
	var rule models.ReferralProgramRule
	created := false

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errFind := tx.Where("is_active = ?", true).Order("updated_at DESC").First(&rule).Error
		if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return errFind
		}

		now := time.Now().UTC()
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			rule = models.ReferralProgramRule{
				PointsForReferrer:     fields.PointsForReferrer,
				PointsForReferee:      fields.PointsForReferee,
				MinimumPurchaseAmount: fields.MinimumPurchaseAmount,
				ExpiryDays:            fields.ExpiryDays,
				MaxReferralsPerUser:   fields.MaxReferralsPerUser,
				IsActive:              true,
				UpdatedBy:             &adminID,
				CreatedAt:             now,
				UpdatedAt:             now,
			}
			created = true
			if errDeactivate := s.deactivateOtherReferralRules(tx, 0, now); errDeactivate != nil {
				return errDeactivate
			}
			return tx.Create(&rule).Error
		}

		// Deactivate-others runs on every save of an active rule, even
		// when the active row is unchanged; the write is idempotent.
		if errDeactivate := s.deactivateOtherReferralRules(tx, rule.ID, now); errDeactivate != nil {
			return errDeactivate
		}

		rule.PointsForReferrer = fields.PointsForReferrer
		rule.PointsForReferee = fields.PointsForReferee
		rule.MinimumPurchaseAmount = fields.MinimumPurchaseAmount
		rule.ExpiryDays = fields.ExpiryDays
		rule.MaxReferralsPerUser = fields.MaxReferralsPerUser
		rule.UpdatedBy = &adminID
		rule.UpdatedAt = now
		return tx.Model(&models.ReferralProgramRule{}).Where("id = ?", rule.ID).Updates(map[string]any{
			"points_for_referrer":     fields.PointsForReferrer,
			"points_for_referee":      fields.PointsForReferee,
			"minimum_purchase_amount": fields.MinimumPurchaseAmount,
			"expiry_days":             fields.ExpiryDays,
			"max_referrals_per_user":  fields.MaxReferralsPerUser,
			"updated_by":              adminID,
			"updated_at":              now,
		}).Error
	})
	if errTx != nil {
		return nil, false, errTx
	}

	s.invalidate(ctx, referralRuleCacheKey)
	return &rule, created, nil
}

// ListCoinRules returns all coin conversion rules, newest first, with
// the updater relation resolved.
func (s *Store) ListCoinRules(ctx context.Context) ([]models.CoinConversionRule, error) {
	var rows []models.CoinConversionRule
	errFind := s.db.WithContext(ctx).
		Preload("Updater").
		Order("created_at DESC").
		Find(&rows).Error
	if errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// deactivateOtherReferralRules forces is_active=false on every
// referral rule except keepID (0 keeps nothing).
func (s *Store) deactivateOtherReferralRules(tx *gorm.DB, keepID uint64, now time.Time) error {
	q := tx.Model(&models.ReferralProgramRule{}).Where("is_active = ?", true)
	if keepID != 0 {
		q = q.Where("id <> ?", keepID)
	}
	return q.Updates(map[string]any{"is_active": false, "updated_at": now}).Error
}

// cacheGet loads a cached rule into out; any failure is a miss.
func (s *Store) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	raw, errGet := s.cache.Get(ctx, key).Bytes()
	if errGet != nil {
		if !errors.Is(errGet, redis.Nil) {
			log.Debugf("rules: cache get %s: %v", key, errGet)
		}
		return false
	}
	if errUnmarshal := json.Unmarshal(raw, out); errUnmarshal != nil {
		log.Debugf("rules: cache decode %s: %v", key, errUnmarshal)
		return false
	}
	return true
}

// cacheSet stores a rule snapshot best-effort.
func (s *Store) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return
	}
	if errSet := s.cache.Set(ctx, key, raw, ruleCacheTTL).Err(); errSet != nil {
		log.Debugf("rules: cache set %s: %v", key, errSet)
	}
}

// invalidate drops cached rule snapshots after a write.
func (s *Store) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil || len(keys) == 0 {
		return
	}
	if errDel := s.cache.Del(ctx, keys...).Err(); errDel != nil {
		log.Warnf("rules: cache invalidate: %v", errDel)
	}
}
