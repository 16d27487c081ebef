package referral

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/perkbase/loyalty-admin/internal/models"
	"github.com/perkbase/loyalty-admin/internal/rules"
	internalsettings "github.com/perkbase/loyalty-admin/internal/settings"
	"gorm.io/gorm"
)

// Service orchestrates referral link issuance, entry registration,
// tracking and completion against the active program rule.
type Service struct {
	db          *gorm.DB
	rules       *rules.Store
	tracker     *Tracker
	linkBaseURL string
}

// NewService constructs a referral service.
func NewService(db *gorm.DB, ruleStore *rules.Store, tracker *Tracker, linkBaseURL string) *Service {
	return &Service{db: db, rules: ruleStore, tracker: tracker, linkBaseURL: linkBaseURL}
}

// Tracker exposes the underlying entry tracker.
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// ActiveProgram returns the active referral program rule.
func (s *Service) ActiveProgram(ctx context.Context) (*models.ReferralProgramRule, error) {
	return s.rules.ActiveReferralRule(ctx)
}

// CreateLink issues a referral URL for a referrer. It does not create
// an entry; entries are created when the referee signs up through the
// link (RegisterReferee).
func (s *Service) CreateLink(ctx context.Context, referrerID uint64) (string, error) {
	rule, errRule := s.rules.ActiveReferralRule(ctx)
	if errRule != nil {
		return "", errRule
	}

	count, errCount := s.tracker.CountByReferrer(ctx, referrerID)
	if errCount != nil {
		return "", errCount
	}
	if count >= int64(rule.MaxReferralsPerUser) {
		return "", ErrLimitReached
	}

	base := s.linkBase()
	parsed, errParse := url.Parse(base)
	if errParse != nil {
		return "", fmt.Errorf("referral: parse link base url: %w", errParse)
	}
	query := parsed.Query()
	query.Set("ref", strconv.FormatUint(referrerID, 10))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// RegisterReferee creates the pending entry for a referee who signed
// up through a referral link. A referee can be referred at most once,
// even after an earlier referral expired.
func (s *Service) RegisterReferee(ctx context.Context, referrerID, refereeID uint64) (*models.ReferralEntry, error) {
	if referrerID == refereeID {
		return nil, ErrSelfReferral
	}

	rule, errRule := s.rules.ActiveReferralRule(ctx)
	if errRule != nil {
		return nil, errRule
	}

	if errExist := s.customersExist(ctx, referrerID, refereeID); errExist != nil {
		return nil, errExist
	}

	count, errCount := s.tracker.CountByReferrer(ctx, referrerID)
	if errCount != nil {
		return nil, errCount
	}
	if count >= int64(rule.MaxReferralsPerUser) {
		return nil, ErrLimitReached
	}

	var existing models.ReferralEntry
	errFind := s.db.WithContext(ctx).Where("referee_id = ?", refereeID).First(&existing).Error
	if errFind == nil {
		return nil, ErrAlreadyReferred
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}

	now := time.Now().UTC()
	entry := models.ReferralEntry{
		ReferrerID:   referrerID,
		RefereeID:    refereeID,
		Status:       models.ReferralStatusPending,
		FirstLoginAt: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&entry).Error; errCreate != nil {
		// A concurrent registration for the same referee loses to the
		// unique index rather than creating a second entry.
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReferred
		}
		return nil, errCreate
	}
	return &entry, nil
}

// Track loads an entry, applies expiry, and returns the possibly
// now-expired entry.
func (s *Service) Track(ctx context.Context, entryID uint64) (*models.ReferralEntry, error) {
	entry, errLoad := s.loadEntry(ctx, entryID)
	if errLoad != nil {
		return nil, errLoad
	}
	if errExpiry := s.tracker.CheckExpiry(ctx, entry); errExpiry != nil {
		return nil, errExpiry
	}
	return entry, nil
}

// CompleteReferral finalizes an entry against the active program rule.
// A missing active rule is an explicit error rather than a nil
// dereference further down.
func (s *Service) CompleteReferral(ctx context.Context, entryID uint64, purchaseAmount float64) (*models.ReferralEntry, error) {
	entry, errLoad := s.loadEntry(ctx, entryID)
	if errLoad != nil {
		return nil, errLoad
	}

	rule, errRule := s.rules.ActiveReferralRule(ctx)
	if errRule != nil {
		return nil, errRule
	}

	if errComplete := s.tracker.Complete(ctx, entry, rule, purchaseAmount); errComplete != nil {
		return nil, errComplete
	}
	return entry, nil
}

// customersExist verifies both customer IDs resolve to real customers,
// returning ErrUnknownCustomer before the entry insert hits a foreign
// key violation.
func (s *Service) customersExist(ctx context.Context, ids ...uint64) error {
	var count int64
	errCount := s.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id IN ?", ids).
		Count(&count).Error
	if errCount != nil {
		return errCount
	}
	if count != int64(len(ids)) {
		return ErrUnknownCustomer
	}
	return nil
}

// loadEntry fetches an entry by ID.
func (s *Service) loadEntry(ctx context.Context, entryID uint64) (*models.ReferralEntry, error) {
	var entry models.ReferralEntry
	errFind := s.db.WithContext(ctx).First(&entry, entryID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	return &entry, nil
}

// linkBase resolves the referral link base URL, preferring the
// DB-backed settings override.
func (s *Service) linkBase() string {
	if override, ok := internalsettings.DBConfigString(internalsettings.ReferralLinkBaseURLKey); ok {
		if trimmed := strings.TrimSpace(override); trimmed != "" {
			return trimmed
		}
	}
	return s.linkBaseURL
}
