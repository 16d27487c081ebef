package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "Perkbase"
	// ReferralLinkBaseURLKey overrides the referral link base URL from config.
	ReferralLinkBaseURLKey = "REFERRAL_LINK_BASE_URL"
	// ReferralSweepIntervalSecondsKey controls the expiry sweep interval in seconds.
	ReferralSweepIntervalSecondsKey = "REFERRAL_SWEEP_INTERVAL_SECONDS"
	// AuditRetentionDaysKey controls how long audit log rows are kept.
	AuditRetentionDaysKey = "AUDIT_RETENTION_DAYS"
	// DefaultReferralSweepIntervalSeconds is the fallback sweep interval (seconds).
	DefaultReferralSweepIntervalSeconds = 3600
	// DefaultAuditRetentionDays is the fallback audit retention; 0 keeps rows forever.
	DefaultAuditRetentionDays = 180
)
