package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/perkbase/loyalty-admin/internal/db"
	"github.com/perkbase/loyalty-admin/internal/models"
	"github.com/perkbase/loyalty-admin/internal/tiers"
	"gorm.io/gorm"
)

// CustomerHandler manages loyalty customer endpoints.
type CustomerHandler struct {
	db *gorm.DB
}

// NewCustomerHandler constructs a CustomerHandler.
func NewCustomerHandler(db *gorm.DB) *CustomerHandler {
	return &CustomerHandler{db: db}
}

// createCustomerRequest defines the request body for customer creation.
type createCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Create registers a new customer.
func (h *CustomerHandler) Create(c *gin.Context) {
	var body createCustomerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	now := time.Now().UTC()
	customer := models.Customer{
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(body.Phone),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&customer).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create customer failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatCustomer(&customer))
}

// List returns customers filtered by query parameters.
func (h *CustomerHandler) List(c *gin.Context) {
	var (
		nameQ   = strings.TrimSpace(c.Query("name"))
		emailQ  = strings.TrimSpace(c.Query("email"))
		tierQ   = strings.TrimSpace(c.Query("tier"))
		activeQ = strings.TrimSpace(c.Query("active"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Customer{})
	if nameQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+nameQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}
	if emailQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+emailQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), pattern)
	}
	if tierQ != "" {
		q = q.Where("tier = ?", tierQ)
	}
	if activeQ != "" {
		if activeQ == "true" || activeQ == "1" {
			q = q.Where("active = ?", true)
		} else if activeQ == "false" || activeQ == "0" {
			q = q.Where("active = ?", false)
		}
	}

	var rows []models.Customer
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list customers failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, h.formatCustomer(&row))
	}
	c.JSON(http.StatusOK, gin.H{"customers": out})
}

// Get fetches a customer by ID.
func (h *CustomerHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var customer models.Customer
	if errFind := h.db.WithContext(c.Request.Context()).First(&customer, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatCustomer(&customer))
}

// updateCustomerRequest defines the request body for customer updates.
type updateCustomerRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
	Active *bool   `json:"active"`
}

// Update modifies customer fields.
func (h *CustomerHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateCustomerRequest
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
	if body.Email != nil {
		email := strings.TrimSpace(*body.Email)
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email cannot be empty"})
			return
		}
		updates["email"] = email
	}
	if body.Phone != nil {
		updates["phone"] = strings.TrimSpace(*body.Phone)
	}
	if body.Active != nil {
		updates["active"] = *body.Active
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Customer{}).Where("id = ?", id).Updates(updates)
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

// Delete removes a customer.
func (h *CustomerHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Customer{}, id)
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

// adjustPointsRequest defines the request body for point adjustments.
type adjustPointsRequest struct {
	Delta  *int64 `json:"delta"`
	Reason string `json:"reason"`
}

// AdjustPoints applies a manual point adjustment and recomputes the tier.
func (h *CustomerHandler) AdjustPoints(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body adjustPointsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Delta == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delta is required"})
		return
	}

	var customer models.Customer
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&customer, id).Error; errFind != nil {
			return errFind
		}
		next := customer.Points + *body.Delta
		if next < 0 {
			next = 0
		}
		tierName, errTier := tiers.ForPoints(c.Request.Context(), tx, next)
		if errTier != nil {
			return errTier
		}
		now := time.Now().UTC()
		if errUpdate := tx.Model(&models.Customer{}).Where("id = ?", id).Updates(map[string]any{
			"points":     next,
			"tier":       tierName,
			"updated_at": now,
		}).Error; errUpdate != nil {
			return errUpdate
		}
		customer.Points = next
		customer.Tier = tierName
		customer.UpdatedAt = now
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "adjust points failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatCustomer(&customer))
}

// formatCustomer converts a customer into a response payload.
func (h *CustomerHandler) formatCustomer(customer *models.Customer) gin.H {
	return gin.H{
		"id":         customer.ID,
		"name":       customer.Name,
		"email":      customer.Email,
		"phone":      customer.Phone,
		"points":     customer.Points,
		"tier":       customer.Tier,
		"active":     customer.Active,
		"created_at": customer.CreatedAt,
		"updated_at": customer.UpdatedAt,
	}
}
