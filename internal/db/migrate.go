package db

import (
	"fmt"

	"github.com/perkbase/loyalty-admin/internal/models"
	"gorm.io/gorm"
)

// Migrate runs schema migrations for all models and enforces the
// single-active-rule invariant with partial unique indexes.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.Customer{},
		&models.Tier{},
		&models.EarningCriteria{},
		&models.Offer{},
		&models.CoinConversionRule{},
		&models.ReferralProgramRule{},
		&models.ReferralEntry{},
		&models.AuditLog{},
		&models.Setting{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}

	// Partial unique indexes close the read-then-write race on "create
	// the first active rule": a second concurrent insert fails instead
	// of leaving two active rows. Supported by both dialects.
	partialIndexes := []struct {
		name  string
		table string
	}{
		{name: "uniq_referral_program_rules_active", table: "referral_program_rules"},
		{name: "uniq_coin_conversion_rules_active", table: "coin_conversion_rules"},
	}
	for _, idx := range partialIndexes {
		stmt := fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (is_active) WHERE is_active",
			idx.name, idx.table,
		)
		if errExec := conn.Exec(stmt).Error; errExec != nil {
			return fmt.Errorf("db: create index %s: %w", idx.name, errExec)
		}
	}

	return nil
}
