package referral

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/perkbase/loyalty-admin/internal/db"
	"github.com/perkbase/loyalty-admin/internal/models"
	"github.com/perkbase/loyalty-admin/internal/rules"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	rules   *rules.Store
	tracker *Tracker
	service *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	ruleStore := rules.NewStore(conn, nil)
	tracker := NewTracker(conn, ruleStore)
	service := NewService(conn, ruleStore, tracker, "https://example.com/join")
	return &testEnv{db: conn, rules: ruleStore, tracker: tracker, service: service}
}

func (e *testEnv) seedProgram(t *testing.T, fields rules.ReferralRuleFields) {
	t.Helper()
	if _, _, errUpsert := e.rules.UpsertReferralRule(context.Background(), fields, 1); errUpsert != nil {
		t.Fatalf("seed program rule: %v", errUpsert)
	}
}

func (e *testEnv) seedCustomer(t *testing.T, name string, points int64) *models.Customer {
	t.Helper()
	customer := models.Customer{
		Name:   name,
		Email:  name + "@example.com",
		Points: points,
		Active: true,
	}
	if errCreate := e.db.Create(&customer).Error; errCreate != nil {
		t.Fatalf("seed customer %s: %v", name, errCreate)
	}
	return &customer
}

func defaultProgram() rules.ReferralRuleFields {
	return rules.ReferralRuleFields{
		PointsForReferrer:     100,
		PointsForReferee:      50,
		MinimumPurchaseAmount: 25,
		ExpiryDays:            14,
		MaxReferralsPerUser:   3,
	}
}

func TestCheckExpiryLeavesFreshEntryPending(t *testing.T) {
	env := newTestEnv(t)
	env.seedProgram(t, defaultProgram())
	referrer := env.seedCustomer(t, "referrer", 0)
	referee := env.seedCustomer(t, "referee", 0)

	entry, errRegister := env.service.RegisterReferee(context.Background(), referrer.ID, referee.ID)
	if errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}

	if errExpiry := env.tracker.CheckExpiry(context.Background(), entry); errExpiry != nil {
		t.Fatalf("check expiry: %v", errExpiry)
	}
	if entry.Status != models.ReferralStatusPending {
		t.Fatalf("expected pending, got %s", entry.Status)
	}
}

func TestCheckExpiryExpiresLapsedEntry(t *testing.T) {
	env := newTestEnv(t)
	env.seedProgram(t, defaultProgram())
	referrer := env.seedCustomer(t, "referrer", 0)
	referee := env.seedCustomer(t, "referee", 0)

	entry, errRegister := env.service.RegisterReferee(context.Background(), referrer.ID, referee.ID)
	if errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}

	created := time.Now().UTC().Add(-15 * 24 * time.Hour)
	if errBackdate := env.db.Model(&models.ReferralEntry{}).
		Where("id = ?", entry.ID).
		Update("created_at", created).Error; errBackdate != nil {
		t.Fatalf("backdate entry: %v", errBackdate)
	}
	entry.CreatedAt = created

	if errExpiry := env.tracker.CheckExpiry(context.Background(), entry); errExpiry != nil {
		t.Fatalf("check expiry: %v", errExpiry)
	}
	if entry.Status != models.ReferralStatusExpired {
		t.Fatalf("expected expired, got %s", entry.Status)
	}

	// Idempotent on terminal entries.
	if errAgain := env.tracker.CheckExpiry(context.Background(), entry); errAgain != nil {
		t.Fatalf("second check: %v", errAgain)
	}
	if entry.Status != models.ReferralStatusExpired {
		t.Fatalf("expected expired after second check, got %s", entry.Status)
	}
}

func TestCompleteCreditsBothCustomersAndRecomputesTier(t *testing.T) {
	env := newTestEnv(t)
	env.seedProgram(t, defaultProgram())
	referrer := env.seedCustomer(t, "referrer", 950)
	referee := env.seedCustomer(t, "referee", 0)

	if errTier := env.db.Create(&models.Tier{Name: "gold", MinimumPoints: 1000}).Error; errTier != nil {
		t.Fatalf("seed tier: %v", errTier)
	}

	entry, errRegister := env.service.RegisterReferee(context.Background(), referrer.ID, referee.ID)
	if errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}

	completed, errComplete := env.service.CompleteReferral(context.Background(), entry.ID, 30)
	if errComplete != nil {
		t.Fatalf("complete: %v", errComplete)
	}
	if completed.Status != models.ReferralStatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if completed.ReferrerPoints != 100 || completed.RefereePoints != 50 {
		t.Fatalf("unexpected recorded awards: %+v", completed)
	}
	if completed.CompletedAt == nil || completed.FirstPurchaseAt == nil {
		t.Fatal("expected completion timestamps to be set")
	}

	var updatedReferrer models.Customer
	if errFind := env.db.First(&updatedReferrer, referrer.ID).Error; errFind != nil {
		t.Fatalf("reload referrer: %v", errFind)
	}
	if updatedReferrer.Points != 1050 {
		t.Fatalf("expected referrer balance 1050, got %d", updatedReferrer.Points)
	}
	if updatedReferrer.Tier != "gold" {
		t.Fatalf("expected referrer tier gold, got %q", updatedReferrer.Tier)
	}

	var updatedReferee models.Customer
	if errFind := env.db.First(&updatedReferee, referee.ID).Error; errFind != nil {
		t.Fatalf("reload referee: %v", errFind)
	}
	if updatedReferee.Points != 50 {
		t.Fatalf("expected referee balance 50, got %d", updatedReferee.Points)
	}
}

func TestCompleteRejectsTerminalEntry(t *testing.T) {
	env := newTestEnv(t)
	env.seedProgram(t, defaultProgram())
	referrer := env.seedCustomer(t, "referrer", 0)
	referee := env.seedCustomer(t, "referee", 0)

	entry, errRegister := env.service.RegisterReferee(context.Background(), referrer.ID, referee.ID)
	if errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}
	if _, errComplete := env.service.CompleteReferral(context.Background(), entry.ID, 30); errComplete != nil {
		t.Fatalf("complete: %v", errComplete)
	}

	_, errAgain := env.service.CompleteReferral(context.Background(), entry.ID, 30)
	if !errors.Is(errAgain, ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal, got %v", errAgain)
	}

	// Balances credited exactly once.
	var updatedReferrer models.Customer
	if errFind := env.db.First(&updatedReferrer, referrer.ID).Error; errFind != nil {
		t.Fatalf("reload referrer: %v", errFind)
	}
	if updatedReferrer.Points != 100 {
		t.Fatalf("expected referrer balance 100, got %d", updatedReferrer.Points)
	}
}

func TestCompleteRejectsSmallPurchase(t *testing.T) {
	env := newTestEnv(t)
	env.seedProgram(t, defaultProgram())
	referrer := env.seedCustomer(t, "referrer", 0)
	referee := env.seedCustomer(t, "referee", 0)

	entry, errRegister := env.service.RegisterReferee(context.Background(), referrer.ID, referee.ID)
	if errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}

	_, errComplete := env.service.CompleteReferral(context.Background(), entry.ID, 10)
	if !errors.Is(errComplete, ErrPurchaseTooSmall) {
		t.Fatalf("expected ErrPurchaseTooSmall, got %v", errComplete)
	}

	var reloaded models.ReferralEntry
	if errFind := env.db.First(&reloaded, entry.ID).Error; errFind != nil {
		t.Fatalf("reload entry: %v", errFind)
	}
	if reloaded.Status != models.ReferralStatusPending {
		t.Fatalf("expected entry to stay pending, got %s", reloaded.Status)
	}
}
