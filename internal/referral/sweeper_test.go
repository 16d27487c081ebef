package referral

import (
	"context"
	"testing"
	"time"

	"github.com/perkbase/loyalty-admin/internal/models"
)

func TestSweepOnceExpiresOnlyLapsedPendingEntries(t *testing.T) {
	env := newTestEnv(t)
	env.seedProgram(t, defaultProgram())

	now := time.Now().UTC()
	entries := []models.ReferralEntry{
		{ReferrerID: 1, RefereeID: 2, Status: models.ReferralStatusPending, CreatedAt: now.Add(-20 * 24 * time.Hour)},
		{ReferrerID: 1, RefereeID: 3, Status: models.ReferralStatusPending, CreatedAt: now.Add(-1 * 24 * time.Hour)},
		{ReferrerID: 1, RefereeID: 4, Status: models.ReferralStatusCompleted, CreatedAt: now.Add(-20 * 24 * time.Hour)},
	}
	for i := range entries {
		if errCreate := env.db.Create(&entries[i]).Error; errCreate != nil {
			t.Fatalf("seed entry %d: %v", i, errCreate)
		}
	}

	sweeper := NewExpirySweeper(env.db, env.rules)
	sweeper.sweepOnce(context.Background())

	var statuses []models.ReferralEntry
	if errFind := env.db.Order("referee_id ASC").Find(&statuses).Error; errFind != nil {
		t.Fatalf("reload entries: %v", errFind)
	}
	if statuses[0].Status != models.ReferralStatusExpired {
		t.Fatalf("expected lapsed entry expired, got %s", statuses[0].Status)
	}
	if statuses[1].Status != models.ReferralStatusPending {
		t.Fatalf("expected fresh entry pending, got %s", statuses[1].Status)
	}
	if statuses[2].Status != models.ReferralStatusCompleted {
		t.Fatalf("expected completed entry untouched, got %s", statuses[2].Status)
	}
}

func TestSweepOnceNoopWithoutActiveRule(t *testing.T) {
	env := newTestEnv(t)

	old := models.ReferralEntry{ReferrerID: 1, RefereeID: 2, Status: models.ReferralStatusPending,
		CreatedAt: time.Now().UTC().Add(-100 * 24 * time.Hour)}
	if errCreate := env.db.Create(&old).Error; errCreate != nil {
		t.Fatalf("seed entry: %v", errCreate)
	}

	sweeper := NewExpirySweeper(env.db, env.rules)
	sweeper.sweepOnce(context.Background())

	var reloaded models.ReferralEntry
	if errFind := env.db.First(&reloaded, old.ID).Error; errFind != nil {
		t.Fatalf("reload entry: %v", errFind)
	}
	if reloaded.Status != models.ReferralStatusPending {
		t.Fatalf("expected entry untouched without a rule, got %s", reloaded.Status)
	}
}
