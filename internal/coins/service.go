package coins

import (
	"context"
	"errors"
	"math"

	"github.com/perkbase/loyalty-admin/internal/models"
	"github.com/perkbase/loyalty-admin/internal/rules"
)

// Validation errors for coin conversion configuration.
var (
	// ErrInvalidRate indicates a non-positive points-per-coin value.
	ErrInvalidRate = errors.New("points_per_coin must be greater than zero")
	// ErrNegativeMinimum indicates a negative minimum points value.
	ErrNegativeMinimum = errors.New("minimum_points cannot be negative")
)

// Service manages the coin conversion configuration.
type Service struct {
	rules *rules.Store
}

// NewService constructs a coin conversion service.
func NewService(ruleStore *rules.Store) *Service {
	return &Service{rules: ruleStore}
}

// CreateOrUpdate validates and upserts the active coin rule. The
// returned flag reports whether a new rule was created.
func (s *Service) CreateOrUpdate(ctx context.Context, pointsPerCoin, minimumPoints float64, adminID uint64) (*models.CoinConversionRule, bool, error) {
	if pointsPerCoin <= 0 {
		return nil, false, ErrInvalidRate
	}
	if minimumPoints < 0 {
		return nil, false, ErrNegativeMinimum
	}
	return s.rules.UpsertCoinRule(ctx, rules.CoinRuleFields{
		PointsPerCoin: pointsPerCoin,
		MinimumPoints: minimumPoints,
	}, adminID)
}

// ListAll returns every coin rule, active and inactive, with the
// updating admin resolved.
func (s *Service) ListAll(ctx context.Context) ([]models.CoinConversionRule, error) {
	return s.rules.ListCoinRules(ctx)
}

// Reset zeroes the active rule's rate and minimum without flipping
// is_active; conversions are denied through the zero rate instead.
func (s *Service) Reset(ctx context.Context, adminID uint64) (*models.CoinConversionRule, error) {
	return s.rules.ResetCoinRule(ctx, adminID)
}

// Active returns the active coin rule.
func (s *Service) Active(ctx context.Context) (*models.CoinConversionRule, error) {
	return s.rules.ActiveCoinRule(ctx)
}

// Convert computes how many whole coins a point balance yields under
// the rule. A zero rate means conversion is disabled, never a
// divide-by-zero; balances under the minimum are ineligible.
func Convert(rule *models.CoinConversionRule, points float64) (int64, bool) {
	if rule == nil || rule.PointsPerCoin <= 0 {
		return 0, false
	}
	if points < rule.MinimumPoints || points <= 0 {
		return 0, false
	}
	return int64(math.Floor(points / rule.PointsPerCoin)), true
}
