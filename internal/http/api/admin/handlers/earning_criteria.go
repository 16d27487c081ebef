package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/models"
	"gorm.io/gorm"
)

// EarningCriteriaHandler manages point earning criteria endpoints.
type EarningCriteriaHandler struct {
	db *gorm.DB
}

// NewEarningCriteriaHandler constructs an EarningCriteriaHandler.
func NewEarningCriteriaHandler(db *gorm.DB) *EarningCriteriaHandler {
	return &EarningCriteriaHandler{db: db}
}

var validEarningEvents = map[models.EarningEvent]struct{}{
	models.EarningEventPurchase: {},
	models.EarningEventSignup:   {},
	models.EarningEventReview:   {},
}

// createEarningCriteriaRequest defines the request body for criteria creation.
type createEarningCriteriaRequest struct {
	Name          string  `json:"name"`
	Event         string  `json:"event"`
	PointsPerUnit int64   `json:"points_per_unit"`
	MinimumAmount float64 `json:"minimum_amount"`
}

// Create adds a new earning criteria.
func (h *EarningCriteriaHandler) Create(c *gin.Context) {
	var body createEarningCriteriaRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	event := models.EarningEvent(strings.TrimSpace(body.Event))
	if _, okEvent := validEarningEvents[event]; !okEvent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
		return
	}
	if body.PointsPerUnit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points_per_unit cannot be negative"})
		return
	}
	if body.MinimumAmount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minimum_amount cannot be negative"})
		return
	}

	adminID, _ := currentAdminID(c)
	now := time.Now().UTC()
	criteria := models.EarningCriteria{
		Name:          name,
		Event:         event,
		PointsPerUnit: body.PointsPerUnit,
		MinimumAmount: body.MinimumAmount,
		Enabled:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if adminID != 0 {
		criteria.UpdatedBy = &adminID
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&criteria).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create criteria failed"})
		return
	}
	c.JSON(http.StatusCreated, formatEarningCriteria(&criteria))
}

// List returns earning criteria, optionally filtered by event or state.
func (h *EarningCriteriaHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.EarningCriteria{}).Preload("Updater")
	if event := strings.TrimSpace(c.Query("event")); event != "" {
		q = q.Where("event = ?", event)
	}
	switch strings.TrimSpace(c.Query("enabled")) {
	case "true", "1":
		q = q.Where("enabled = ?", true)
	case "false", "0":
		q = q.Where("enabled = ?", false)
	}

	var rows []models.EarningCriteria
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list criteria failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatEarningCriteria(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"criteria": out})
}

// Get fetches an earning criteria by ID.
func (h *EarningCriteriaHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var criteria models.EarningCriteria
	if errFind := h.db.WithContext(c.Request.Context()).Preload("Updater").First(&criteria, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatEarningCriteria(&criteria))
}

// updateEarningCriteriaRequest defines the request body for criteria updates.
type updateEarningCriteriaRequest struct {
	Name          *string  `json:"name"`
	Event         *string  `json:"event"`
	PointsPerUnit *int64   `json:"points_per_unit"`
	MinimumAmount *float64 `json:"minimum_amount"`
}

// Update modifies an earning criteria's fields.
func (h *EarningCriteriaHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateEarningCriteriaRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	adminID, _ := currentAdminID(c)
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if adminID != 0 {
		updates["updated_by"] = adminID
	}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = name
	}
	if body.Event != nil {
		event := models.EarningEvent(strings.TrimSpace(*body.Event))
		if _, okEvent := validEarningEvents[event]; !okEvent {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
			return
		}
		updates["event"] = event
	}
	if body.PointsPerUnit != nil {
		if *body.PointsPerUnit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "points_per_unit cannot be negative"})
			return
		}
		updates["points_per_unit"] = *body.PointsPerUnit
	}
	if body.MinimumAmount != nil {
		if *body.MinimumAmount < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minimum_amount cannot be negative"})
			return
		}
		updates["minimum_amount"] = *body.MinimumAmount
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.EarningCriteria{}).Where("id = ?", id).Updates(updates)
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

// Delete removes an earning criteria.
func (h *EarningCriteriaHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.EarningCriteria{}, id)
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

// Enable turns an earning criteria on.
func (h *EarningCriteriaHandler) Enable(c *gin.Context) {
	h.setEnabled(c, true)
}

// Disable turns an earning criteria off without deleting it.
func (h *EarningCriteriaHandler) Disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *EarningCriteriaHandler) setEnabled(c *gin.Context, enabled bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	adminID, _ := currentAdminID(c)
	updates := map[string]any{
		"enabled":    enabled,
		"updated_at": time.Now().UTC(),
	}
	if adminID != 0 {
		updates["updated_by"] = adminID
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.EarningCriteria{}).Where("id = ?", id).Updates(updates)
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

// formatEarningCriteria converts a criteria into a response payload.
func formatEarningCriteria(criteria *models.EarningCriteria) gin.H {
	out := gin.H{
		"id":              criteria.ID,
		"name":            criteria.Name,
		"event":           criteria.Event,
		"points_per_unit": criteria.PointsPerUnit,
		"minimum_amount":  criteria.MinimumAmount,
		"enabled":         criteria.Enabled,
		"created_at":      criteria.CreatedAt,
		"updated_at":      criteria.UpdatedAt,
	}
	if criteria.Updater != nil {
		out["updated_by"] = gin.H{
			"id":       criteria.Updater.ID,
			"username": criteria.Updater.Username,
			"name":     criteria.Updater.Name,
		}
	} else if criteria.UpdatedBy != nil {
		out["updated_by"] = gin.H{"id": *criteria.UpdatedBy}
	}
	return out
}
