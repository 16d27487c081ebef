package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/audit"
	"github.com/perkbase/loyalty-admin/internal/coins"
	"github.com/perkbase/loyalty-admin/internal/config"
	"github.com/perkbase/loyalty-admin/internal/http/api/admin/handlers"
	"github.com/perkbase/loyalty-admin/internal/referral"
	"github.com/perkbase/loyalty-admin/internal/rules"
	"gorm.io/gorm"
)

// Deps carries the services the admin API depends on.
type Deps struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	Rules     *rules.Store
	Coins     *coins.Service
	Referrals *referral.Service
	Audit     *audit.Recorder
}

// RegisterAdminRoutes mounts the admin API under /v0/admin.
//
// Login endpoints are open; everything else requires a valid admin
// token. MFA self-service needs only authentication, the rest also
// passes the permission check. Mutating endpoints record audit
// entries.
func RegisterAdminRoutes(engine *gin.Engine, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	mfaHandler := handlers.NewMFAHandler(deps.DB)
	adminHandler := handlers.NewAdminHandler(deps.DB)
	customerHandler := handlers.NewCustomerHandler(deps.DB)
	criteriaHandler := handlers.NewEarningCriteriaHandler(deps.DB)
	tierHandler := handlers.NewTierHandler(deps.DB)
	offerHandler := handlers.NewOfferHandler(deps.DB)
	coinHandler := handlers.NewCoinConversionHandler(deps.Coins)
	referralHandler := handlers.NewReferralProgramHandler(deps.Rules, deps.Referrals)
	auditHandler := handlers.NewAuditLogHandler(deps.DB)
	settingsHandler := handlers.NewSettingsHandler(deps.DB)

	root := engine.Group("/v0/admin")

	// Open endpoints.
	root.POST("/auth/login", authHandler.Login)
	root.POST("/auth/login/totp", authHandler.LoginTOTP)

	authed := root.Group("", adminAuthMiddleware(deps.JWT))

	// Self-service MFA enrollment, authentication only.
	authed.POST("/mfa/totp/setup", mfaHandler.SetupTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	protected := authed.Group("", adminPermissionMiddleware(deps.DB))

	record := func(action, targetModel string) gin.HandlerFunc {
		return audit.Middleware(deps.Audit, action, targetModel)
	}

	// Admin accounts.
	protected.POST("/admins", record("admin.create", "admin"), adminHandler.Create)
	protected.GET("/admins", adminHandler.List)
	protected.GET("/admins/:id", adminHandler.Get)
	protected.PUT("/admins/:id", record("admin.update", "admin"), adminHandler.Update)
	protected.DELETE("/admins/:id", record("admin.delete", "admin"), adminHandler.Delete)
	protected.POST("/admins/:id/disable", record("admin.disable", "admin"), adminHandler.Disable)
	protected.POST("/admins/:id/enable", record("admin.enable", "admin"), adminHandler.Enable)
	protected.POST("/admins/:id/password", record("admin.change_password", "admin"), adminHandler.ChangePassword)
	protected.GET("/permissions", adminHandler.ListPermissions)

	// Customers.
	protected.POST("/customers", record("customer.create", "customer"), customerHandler.Create)
	protected.GET("/customers", customerHandler.List)
	protected.GET("/customers/:id", customerHandler.Get)
	protected.PUT("/customers/:id", record("customer.update", "customer"), customerHandler.Update)
	protected.DELETE("/customers/:id", record("customer.delete", "customer"), customerHandler.Delete)
	protected.POST("/customers/:id/points", record("customer.adjust_points", "customer"), customerHandler.AdjustPoints)

	// Earning criteria.
	protected.POST("/earning-criteria", record("earning_criteria.create", "earning_criteria"), criteriaHandler.Create)
	protected.GET("/earning-criteria", criteriaHandler.List)
	protected.GET("/earning-criteria/:id", criteriaHandler.Get)
	protected.PUT("/earning-criteria/:id", record("earning_criteria.update", "earning_criteria"), criteriaHandler.Update)
	protected.DELETE("/earning-criteria/:id", record("earning_criteria.delete", "earning_criteria"), criteriaHandler.Delete)
	protected.POST("/earning-criteria/:id/enable", record("earning_criteria.enable", "earning_criteria"), criteriaHandler.Enable)
	protected.POST("/earning-criteria/:id/disable", record("earning_criteria.disable", "earning_criteria"), criteriaHandler.Disable)

	// Tiers.
	protected.POST("/tiers", record("tier.create", "tier"), tierHandler.Create)
	protected.GET("/tiers", tierHandler.List)
	protected.GET("/tiers/:id", tierHandler.Get)
	protected.PUT("/tiers/:id", record("tier.update", "tier"), tierHandler.Update)
	protected.DELETE("/tiers/:id", record("tier.delete", "tier"), tierHandler.Delete)

	// Offers.
	protected.POST("/offers", record("offer.create", "offer"), offerHandler.Create)
	protected.GET("/offers", offerHandler.List)
	protected.GET("/offers/:id", offerHandler.Get)
	protected.PUT("/offers/:id", record("offer.update", "offer"), offerHandler.Update)
	protected.DELETE("/offers/:id", record("offer.delete", "offer"), offerHandler.Delete)
	protected.POST("/offers/:id/enable", record("offer.enable", "offer"), offerHandler.Enable)
	protected.POST("/offers/:id/disable", record("offer.disable", "offer"), offerHandler.Disable)

	// Coin conversion.
	protected.POST("/coin-conversion", record("coin_conversion.save", "coin_conversion_rule"), coinHandler.CreateOrUpdate)
	protected.GET("/coin-conversion", coinHandler.List)
	protected.PUT("/coin-conversion/reset", record("coin_conversion.reset", "coin_conversion_rule"), coinHandler.Reset)
	protected.GET("/coin-conversion/convert", coinHandler.Convert)

	// Referral program.
	protected.POST("/referral-program", record("referral_program.save", "referral_program_rule"), referralHandler.UpsertRule)
	protected.GET("/referral-program", referralHandler.GetRule)
	protected.POST("/referral-program/link", record("referral_program.link", "referral_entry"), referralHandler.CreateLink)
	protected.POST("/referral-program/referrals", record("referral_program.register", "referral_entry"), referralHandler.RegisterReferee)
	protected.GET("/referral-program/referrals/:id", referralHandler.Track)
	protected.POST("/referral-program/complete", record("referral_program.complete", "referral_entry"), referralHandler.Complete)

	// Audit logs.
	protected.GET("/audit-logs", auditHandler.List)

	// Settings.
	protected.GET("/settings", settingsHandler.Get)
	protected.PUT("/settings", record("settings.update", "setting"), settingsHandler.Update)
}
