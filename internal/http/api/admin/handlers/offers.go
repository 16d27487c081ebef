package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/perkbase/loyalty-admin/internal/db"
	"github.com/perkbase/loyalty-admin/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OfferHandler manages merchant offer endpoints.
type OfferHandler struct {
	db *gorm.DB
}

// NewOfferHandler constructs an OfferHandler.
func NewOfferHandler(db *gorm.DB) *OfferHandler {
	return &OfferHandler{db: db}
}

// createOfferRequest defines the request body for offer creation.
type createOfferRequest struct {
	Merchant     string          `json:"merchant"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	RequiredTier string          `json:"required_tier"`
	PointsCost   int64           `json:"points_cost"`
	ValidFrom    *time.Time      `json:"valid_from"`
	ValidUntil   *time.Time      `json:"valid_until"`
	Metadata     json.RawMessage `json:"metadata"`
}

// Create adds a new merchant offer.
func (h *OfferHandler) Create(c *gin.Context) {
	var body createOfferRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	merchant := strings.TrimSpace(body.Merchant)
	if merchant == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "merchant is required"})
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if body.PointsCost < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points_cost cannot be negative"})
		return
	}
	if body.ValidFrom != nil && body.ValidUntil != nil && body.ValidUntil.Before(*body.ValidFrom) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid_until cannot precede valid_from"})
		return
	}

	now := time.Now().UTC()
	offer := models.Offer{
		Merchant:     merchant,
		Title:        title,
		Description:  strings.TrimSpace(body.Description),
		RequiredTier: strings.TrimSpace(body.RequiredTier),
		PointsCost:   body.PointsCost,
		ValidFrom:    body.ValidFrom,
		ValidUntil:   body.ValidUntil,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if len(body.Metadata) > 0 {
		offer.Metadata = datatypes.JSON(body.Metadata)
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&offer).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create offer failed"})
		return
	}
	c.JSON(http.StatusCreated, formatOffer(&offer))
}

// List returns offers filtered by query parameters.
func (h *OfferHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Offer{})
	if merchant := strings.TrimSpace(c.Query("merchant")); merchant != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+merchant+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "merchant"), pattern)
	}
	if tier := strings.TrimSpace(c.Query("tier")); tier != "" {
		q = q.Where("required_tier = ?", tier)
	}
	switch strings.TrimSpace(c.Query("enabled")) {
	case "true", "1":
		q = q.Where("enabled = ?", true)
	case "false", "0":
		q = q.Where("enabled = ?", false)
	}
	if strings.TrimSpace(c.Query("current")) == "true" {
		now := time.Now().UTC()
		q = q.Where("(valid_from IS NULL OR valid_from <= ?) AND (valid_until IS NULL OR valid_until >= ?)", now, now)
	}

	var rows []models.Offer
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list offers failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatOffer(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"offers": out})
}

// Get fetches an offer by ID.
func (h *OfferHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var offer models.Offer
	if errFind := h.db.WithContext(c.Request.Context()).First(&offer, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatOffer(&offer))
}

// updateOfferRequest defines the request body for offer updates.
type updateOfferRequest struct {
	Merchant     *string         `json:"merchant"`
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	RequiredTier *string         `json:"required_tier"`
	PointsCost   *int64          `json:"points_cost"`
	ValidFrom    *time.Time      `json:"valid_from"`
	ValidUntil   *time.Time      `json:"valid_until"`
	Metadata     json.RawMessage `json:"metadata"`
}

// Update modifies an offer's fields.
func (h *OfferHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateOfferRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Merchant != nil {
		merchant := strings.TrimSpace(*body.Merchant)
		if merchant == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "merchant cannot be empty"})
			return
		}
		updates["merchant"] = merchant
	}
	if body.Title != nil {
		title := strings.TrimSpace(*body.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
			return
		}
		updates["title"] = title
	}
	if body.Description != nil {
		updates["description"] = strings.TrimSpace(*body.Description)
	}
	if body.RequiredTier != nil {
		updates["required_tier"] = strings.TrimSpace(*body.RequiredTier)
	}
	if body.PointsCost != nil {
		if *body.PointsCost < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "points_cost cannot be negative"})
			return
		}
		updates["points_cost"] = *body.PointsCost
	}
	if body.ValidFrom != nil {
		updates["valid_from"] = *body.ValidFrom
	}
	if body.ValidUntil != nil {
		updates["valid_until"] = *body.ValidUntil
	}
	if len(body.Metadata) > 0 {
		updates["metadata"] = datatypes.JSON(body.Metadata)
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Offer{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes an offer.
func (h *OfferHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Offer{}, id)
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

// Enable makes an offer visible.
func (h *OfferHandler) Enable(c *gin.Context) {
	h.setEnabled(c, true)
}

// Disable hides an offer without deleting it.
func (h *OfferHandler) Disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *OfferHandler) setEnabled(c *gin.Context, enabled bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Offer{}).Where("id = ?", id).Updates(map[string]any{
		"enabled":    enabled,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "enabled": enabled})
}

// formatOffer converts an offer into a response payload.
func formatOffer(offer *models.Offer) gin.H {
	out := gin.H{
		"id":            offer.ID,
		"merchant":      offer.Merchant,
		"title":         offer.Title,
		"description":   offer.Description,
		"required_tier": offer.RequiredTier,
		"points_cost":   offer.PointsCost,
		"valid_from":    offer.ValidFrom,
		"valid_until":   offer.ValidUntil,
		"enabled":       offer.Enabled,
		"created_at":    offer.CreatedAt,
		"updated_at":    offer.UpdatedAt,
	}
	if len(offer.Metadata) > 0 {
		out["metadata"] = json.RawMessage(offer.Metadata)
	}
	return out
}
