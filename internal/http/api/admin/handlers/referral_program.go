package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/models"
	"github.com/perkbase/loyalty-admin/internal/referral"
	"github.com/perkbase/loyalty-admin/internal/rules"
)

// ReferralProgramHandler exposes the referral program endpoints.
type ReferralProgramHandler struct {
	ruleStore *rules.Store
	referrals *referral.Service
}

// NewReferralProgramHandler constructs a ReferralProgramHandler.
func NewReferralProgramHandler(ruleStore *rules.Store, referrals *referral.Service) *ReferralProgramHandler {
	return &ReferralProgramHandler{ruleStore: ruleStore, referrals: referrals}
}

// referralRuleRequest defines the request body for rule creation and updates.
type referralRuleRequest struct {
	PointsForReferrer     *int64   `json:"points_for_referrer"`
	PointsForReferee      *int64   `json:"points_for_referee"`
	MinimumPurchaseAmount *float64 `json:"minimum_purchase_amount"`
	ExpiryDays            *int     `json:"expiry_days"`
	MaxReferralsPerUser   *int     `json:"max_referrals_per_user"`
}

// UpsertRule persists the active referral program rule. A first-time
// configuration answers 201, subsequent updates answer 200.
func (h *ReferralProgramHandler) UpsertRule(c *gin.Context) {
	var body referralRuleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.PointsForReferrer == nil || body.PointsForReferee == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points_for_referrer and points_for_referee are required"})
		return
	}
	if *body.PointsForReferrer < 0 || *body.PointsForReferee < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "point awards cannot be negative"})
		return
	}

	fields := rules.ReferralRuleFields{
		PointsForReferrer: *body.PointsForReferrer,
		PointsForReferee:  *body.PointsForReferee,
	}
	if body.MinimumPurchaseAmount != nil {
		if *body.MinimumPurchaseAmount < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minimum_purchase_amount cannot be negative"})
			return
		}
		fields.MinimumPurchaseAmount = *body.MinimumPurchaseAmount
	}
	if body.ExpiryDays != nil {
		if *body.ExpiryDays <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expiry_days must be greater than zero"})
			return
		}
		fields.ExpiryDays = *body.ExpiryDays
	} else {
		fields.ExpiryDays = 30
	}
	if body.MaxReferralsPerUser != nil {
		if *body.MaxReferralsPerUser <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_referrals_per_user must be greater than zero"})
			return
		}
		fields.MaxReferralsPerUser = *body.MaxReferralsPerUser
	} else {
		fields.MaxReferralsPerUser = 10
	}

	adminID, _ := currentAdminID(c)
	rule, created, errSave := h.ruleStore.UpsertReferralRule(c.Request.Context(), fields, adminID)
	if errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save rule failed"})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, formatReferralRule(rule))
}

// GetRule returns the active referral program rule.
func (h *ReferralProgramHandler) GetRule(c *gin.Context) {
	rule, errActive := h.referrals.ActiveProgram(c.Request.Context())
	if errActive != nil {
		if errors.Is(errActive, rules.ErrNotConfigured) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active program configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load rule failed"})
		return
	}
	c.JSON(http.StatusOK, formatReferralRule(rule))
}

// createLinkRequest defines the request body for link generation.
type createLinkRequest struct {
	ReferrerID uint64 `json:"referrer_id"`
}

// CreateLink builds a shareable referral link for a customer.
func (h *ReferralProgramHandler) CreateLink(c *gin.Context) {
	var body createLinkRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ReferrerID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "referrer_id is required"})
		return
	}

	link, errLink := h.referrals.CreateLink(c.Request.Context(), body.ReferrerID)
	if errLink != nil {
		switch {
		case errors.Is(errLink, rules.ErrNotConfigured):
			c.JSON(http.StatusBadRequest, gin.H{"error": "no active program configured"})
		case errors.Is(errLink, referral.ErrLimitReached):
			c.JSON(http.StatusConflict, gin.H{"error": "referral limit reached"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create link failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

// registerRefereeRequest defines the request body for referral registration.
type registerRefereeRequest struct {
	ReferrerID uint64 `json:"referrer_id"`
	RefereeID  uint64 `json:"referee_id"`
}

// RegisterReferee records a new pending referral entry.
func (h *ReferralProgramHandler) RegisterReferee(c *gin.Context) {
	var body registerRefereeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ReferrerID == 0 || body.RefereeID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "referrer_id and referee_id are required"})
		return
	}

	entry, errRegister := h.referrals.RegisterReferee(c.Request.Context(), body.ReferrerID, body.RefereeID)
	if errRegister != nil {
		switch {
		case errors.Is(errRegister, referral.ErrSelfReferral):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot refer yourself"})
		case errors.Is(errRegister, rules.ErrNotConfigured):
			c.JSON(http.StatusBadRequest, gin.H{"error": "no active program configured"})
		case errors.Is(errRegister, referral.ErrUnknownCustomer):
			c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		case errors.Is(errRegister, referral.ErrLimitReached):
			c.JSON(http.StatusConflict, gin.H{"error": "referral limit reached"})
		case errors.Is(errRegister, referral.ErrAlreadyReferred):
			c.JSON(http.StatusConflict, gin.H{"error": "referee already referred"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "register referral failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, formatReferralEntry(entry))
}

// Track returns a referral entry after applying lazy expiry.
func (h *ReferralProgramHandler) Track(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	entry, errTrack := h.referrals.Track(c.Request.Context(), id)
	if errTrack != nil {
		switch {
		case errors.Is(errTrack, referral.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errTrack, rules.ErrNotConfigured):
			c.JSON(http.StatusBadRequest, gin.H{"error": "no active program configured"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "track referral failed"})
		}
		return
	}
	c.JSON(http.StatusOK, formatReferralEntry(entry))
}

// completeReferralRequest defines the request body for completion.
type completeReferralRequest struct {
	EntryID        uint64   `json:"entry_id"`
	PurchaseAmount *float64 `json:"purchase_amount"`
}

// Complete finalizes a pending referral after a qualifying purchase.
func (h *ReferralProgramHandler) Complete(c *gin.Context) {
	var body completeReferralRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.EntryID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entry_id is required"})
		return
	}
	if body.PurchaseAmount == nil || *body.PurchaseAmount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "purchase_amount must be a non-negative number"})
		return
	}

	entry, errComplete := h.referrals.CompleteReferral(c.Request.Context(), body.EntryID, *body.PurchaseAmount)
	if errComplete != nil {
		switch {
		case errors.Is(errComplete, referral.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errComplete, rules.ErrNotConfigured):
			c.JSON(http.StatusBadRequest, gin.H{"error": "no active program configured"})
		case errors.Is(errComplete, referral.ErrAlreadyFinal):
			c.JSON(http.StatusConflict, gin.H{"error": "referral already finalized"})
		case errors.Is(errComplete, referral.ErrPurchaseTooSmall):
			c.JSON(http.StatusBadRequest, gin.H{"error": "purchase amount below program minimum"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "complete referral failed"})
		}
		return
	}
	c.JSON(http.StatusOK, formatReferralEntry(entry))
}

// formatReferralRule converts a rule into a response payload.
func formatReferralRule(rule *models.ReferralProgramRule) gin.H {
	out := gin.H{
		"id":                      rule.ID,
		"points_for_referrer":     rule.PointsForReferrer,
		"points_for_referee":      rule.PointsForReferee,
		"minimum_purchase_amount": rule.MinimumPurchaseAmount,
		"expiry_days":             rule.ExpiryDays,
		"max_referrals_per_user":  rule.MaxReferralsPerUser,
		"is_active":               rule.IsActive,
		"created_at":              rule.CreatedAt,
		"updated_at":              rule.UpdatedAt,
	}
	if rule.Updater != nil {
		out["updated_by"] = gin.H{
			"id":       rule.Updater.ID,
			"username": rule.Updater.Username,
			"name":     rule.Updater.Name,
		}
	} else if rule.UpdatedBy != nil {
		out["updated_by"] = gin.H{"id": *rule.UpdatedBy}
	}
	return out
}

// formatReferralEntry converts an entry into a response payload.
func formatReferralEntry(entry *models.ReferralEntry) gin.H {
	return gin.H{
		"id":                entry.ID,
		"referrer_id":       entry.ReferrerID,
		"referee_id":        entry.RefereeID,
		"status":            entry.Status,
		"referrer_points":   entry.ReferrerPoints,
		"referee_points":    entry.RefereePoints,
		"first_login_at":    entry.FirstLoginAt,
		"first_purchase_at": entry.FirstPurchaseAt,
		"completed_at":      entry.CompletedAt,
		"created_at":        entry.CreatedAt,
	}
}
