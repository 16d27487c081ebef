package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/coins"
	"github.com/perkbase/loyalty-admin/internal/models"
	"github.com/perkbase/loyalty-admin/internal/rules"
)

// CoinConversionHandler exposes the coin conversion rule endpoints.
type CoinConversionHandler struct {
	coins *coins.Service
}

// NewCoinConversionHandler constructs a CoinConversionHandler.
func NewCoinConversionHandler(svc *coins.Service) *CoinConversionHandler {
	return &CoinConversionHandler{coins: svc}
}

// coinRuleRequest defines the request body for rule creation and updates.
type coinRuleRequest struct {
	PointsPerCoin *float64 `json:"points_per_coin"`
	MinimumPoints *float64 `json:"minimum_points"`
}

// CreateOrUpdate persists the coin conversion rule. A first-time
// configuration answers 201, subsequent updates answer 200.
func (h *CoinConversionHandler) CreateOrUpdate(c *gin.Context) {
	var body coinRuleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.PointsPerCoin == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points_per_coin is required"})
		return
	}
	minimum := float64(0)
	if body.MinimumPoints != nil {
		minimum = *body.MinimumPoints
	}

	adminID, _ := currentAdminID(c)
	rule, created, errSave := h.coins.CreateOrUpdate(c.Request.Context(), *body.PointsPerCoin, minimum, adminID)
	if errSave != nil {
		if errors.Is(errSave, coins.ErrInvalidRate) || errors.Is(errSave, coins.ErrNegativeMinimum) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errSave.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save rule failed"})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, formatCoinRule(rule))
}

// List returns every coin conversion rule, newest first.
func (h *CoinConversionHandler) List(c *gin.Context) {
	ruleRows, errList := h.coins.ListAll(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list rules failed"})
		return
	}
	out := make([]gin.H, 0, len(ruleRows))
	for i := range ruleRows {
		out = append(out, formatCoinRule(&ruleRows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"rules": out})
}

// Reset zeroes the active rule's numbers without deactivating it.
func (h *CoinConversionHandler) Reset(c *gin.Context) {
	adminID, _ := currentAdminID(c)
	rule, errReset := h.coins.Reset(c.Request.Context(), adminID)
	if errReset != nil {
		if errors.Is(errReset, rules.ErrNotConfigured) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active rule configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset rule failed"})
		return
	}
	c.JSON(http.StatusOK, formatCoinRule(rule))
}

// Convert previews the coin value of a point balance under the active rule.
func (h *CoinConversionHandler) Convert(c *gin.Context) {
	rawPoints := strings.TrimSpace(c.Query("points"))
	points, errParse := strconv.ParseFloat(rawPoints, 64)
	if errParse != nil || points < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points must be a non-negative number"})
		return
	}

	rule, errActive := h.coins.Active(c.Request.Context())
	if errActive != nil {
		if errors.Is(errActive, rules.ErrNotConfigured) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active rule configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load rule failed"})
		return
	}

	value, ok := coins.Convert(rule, points)
	c.JSON(http.StatusOK, gin.H{
		"points":      points,
		"coins":       value,
		"convertible": ok,
	})
}

// formatCoinRule converts a rule into a response payload.
func formatCoinRule(rule *models.CoinConversionRule) gin.H {
	out := gin.H{
		"id":              rule.ID,
		"points_per_coin": rule.PointsPerCoin,
		"minimum_points":  rule.MinimumPoints,
		"is_active":       rule.IsActive,
		"created_at":      rule.CreatedAt,
		"updated_at":      rule.UpdatedAt,
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
