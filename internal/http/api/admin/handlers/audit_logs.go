package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/models"
	"gorm.io/gorm"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 500
)

// AuditLogHandler serves the read-only audit trail.
type AuditLogHandler struct {
	db *gorm.DB
}

// NewAuditLogHandler constructs an AuditLogHandler.
func NewAuditLogHandler(db *gorm.DB) *AuditLogHandler {
	return &AuditLogHandler{db: db}
}

// List returns audit log entries, newest first, with filters and paging.
func (h *AuditLogHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.AuditLog{})

	if rawAdminID := strings.TrimSpace(c.Query("admin_id")); rawAdminID != "" {
		adminID, errParse := strconv.ParseUint(rawAdminID, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid admin_id"})
			return
		}
		q = q.Where("admin_id = ?", adminID)
	}
	if action := strings.TrimSpace(c.Query("action")); action != "" {
		q = q.Where("action = ?", action)
	}
	if target := strings.TrimSpace(c.Query("target_model")); target != "" {
		q = q.Where("target_model = ?", target)
	}
	if rawSince := strings.TrimSpace(c.Query("since")); rawSince != "" {
		since, errParse := time.Parse(time.RFC3339, rawSince)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		q = q.Where("created_at >= ?", since.UTC())
	}
	if rawUntil := strings.TrimSpace(c.Query("until")); rawUntil != "" {
		until, errParse := time.Parse(time.RFC3339, rawUntil)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "until must be RFC3339"})
			return
		}
		q = q.Where("created_at <= ?", until.UTC())
	}

	page := 1
	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			page = parsed
		}
	}
	pageSize := defaultAuditPageSize
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	if pageSize > maxAuditPageSize {
		pageSize = maxAuditPageSize
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count audit logs failed"})
		return
	}

	var rows []models.AuditLog
	errFind := q.Preload("Admin").
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list audit logs failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatAuditLog(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":      out,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// formatAuditLog converts an audit entry into a response payload.
func formatAuditLog(entry *models.AuditLog) gin.H {
	out := gin.H{
		"id":           entry.ID,
		"admin_id":     entry.AdminID,
		"action":       entry.Action,
		"target_model": entry.TargetModel,
		"target_id":    entry.TargetID,
		"created_at":   entry.CreatedAt,
	}
	if entry.Admin.ID != 0 {
		out["admin"] = gin.H{
			"id":       entry.Admin.ID,
			"username": entry.Admin.Username,
			"name":     entry.Admin.Name,
		}
	}
	if len(entry.Details) > 0 {
		out["details"] = entry.Details
	}
	return out
}
