package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/perkbase/loyalty-admin/internal/db"
	"github.com/perkbase/loyalty-admin/internal/models"
)

func TestStoreDBConfigSnapshotAccessors(t *testing.T) {
	StoreDBConfig(time.Now().UTC(), map[string]json.RawMessage{
		SiteNameKey:                     json.RawMessage(`"My Program"`),
		ReferralSweepIntervalSecondsKey: json.RawMessage(`120`),
		"  ":                            json.RawMessage(`"ignored"`),
	})
	t.Cleanup(func() {
		StoreDBConfig(time.Time{}, nil)
	})

	if got, ok := DBConfigString(SiteNameKey); !ok || got != "My Program" {
		t.Fatalf("unexpected site name: %q (ok=%v)", got, ok)
	}
	if got, ok := DBConfigInt(ReferralSweepIntervalSecondsKey); !ok || got != 120 {
		t.Fatalf("unexpected interval: %d (ok=%v)", got, ok)
	}
	if _, ok := DBConfigValue("MISSING"); ok {
		t.Fatal("expected missing key to report absent")
	}
}

func TestRefreshDBConfigSnapshot(t *testing.T) {
	dsn := fmt.Sprintf("file:settings_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	t.Cleanup(func() {
		StoreDBConfig(time.Time{}, nil)
	})

	row := models.Setting{Key: AuditRetentionDaysKey, Value: json.RawMessage(`90`), UpdatedAt: time.Now().UTC()}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("seed setting: %v", errCreate)
	}

	if errRefresh := RefreshDBConfigSnapshot(context.Background(), conn); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}
	if got, ok := DBConfigInt(AuditRetentionDaysKey); !ok || got != 90 {
		t.Fatalf("unexpected retention: %d (ok=%v)", got, ok)
	}
}
