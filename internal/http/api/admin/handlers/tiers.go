package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TierHandler manages tier threshold endpoints.
type TierHandler struct {
	db *gorm.DB
}

// NewTierHandler constructs a TierHandler.
func NewTierHandler(db *gorm.DB) *TierHandler {
	return &TierHandler{db: db}
}

// createTierRequest defines the request body for tier creation.
type createTierRequest struct {
	Name          string          `json:"name"`
	MinimumPoints int64           `json:"minimum_points"`
	Benefits      json.RawMessage `json:"benefits"`
}

// Create adds a new tier.
func (h *TierHandler) Create(c *gin.Context) {
	var body createTierRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if body.MinimumPoints < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minimum_points cannot be negative"})
		return
	}

	now := time.Now().UTC()
	tier := models.Tier{
		Name:          name,
		MinimumPoints: body.MinimumPoints,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if len(body.Benefits) > 0 {
		tier.Benefits = datatypes.JSON(body.Benefits)
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&tier).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "tier name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create tier failed"})
		return
	}
	c.JSON(http.StatusCreated, formatTier(&tier))
}

// List returns all tiers ordered by threshold.
func (h *TierHandler) List(c *gin.Context) {
	var rows []models.Tier
	if errFind := h.db.WithContext(c.Request.Context()).Order("minimum_points ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list tiers failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatTier(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"tiers": out})
}

// Get fetches a tier by ID.
func (h *TierHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var tier models.Tier
	if errFind := h.db.WithContext(c.Request.Context()).First(&tier, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatTier(&tier))
}

// updateTierRequest defines the request body for tier updates.
type updateTierRequest struct {
	Name          *string         `json:"name"`
	MinimumPoints *int64          `json:"minimum_points"`
	Benefits      json.RawMessage `json:"benefits"`
}

// Update modifies a tier's fields.
func (h *TierHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateTierRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = name
	}
	if body.MinimumPoints != nil {
		if *body.MinimumPoints < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minimum_points cannot be negative"})
			return
		}
		updates["minimum_points"] = *body.MinimumPoints
	}
	if len(body.Benefits) > 0 {
		updates["benefits"] = datatypes.JSON(body.Benefits)
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Tier{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "tier name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a tier. Customers holding the tier keep their points
// and are re-tiered on their next balance change.
func (h *TierHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Tier{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// formatTier converts a tier into a response payload.
func formatTier(tier *models.Tier) gin.H {
	out := gin.H{
		"id":             tier.ID,
		"name":           tier.Name,
		"minimum_points": tier.MinimumPoints,
		"created_at":     tier.CreatedAt,
		"updated_at":     tier.UpdatedAt,
	}
	if len(tier.Benefits) > 0 {
		out["benefits"] = json.RawMessage(tier.Benefits)
	}
	return out
}
