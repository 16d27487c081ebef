package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/models"
	"gorm.io/gorm"
)

func newCustomerEngine(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := openHandlerTestDB(t, "customer_handler")

	handler := NewCustomerHandler(conn)
	engine := gin.New()
	engine.Use(stubAdmin(1))
	engine.POST("/v0/admin/customers", handler.Create)
	engine.GET("/v0/admin/customers", handler.List)
	engine.GET("/v0/admin/customers/:id", handler.Get)
	engine.PUT("/v0/admin/customers/:id", handler.Update)
	engine.DELETE("/v0/admin/customers/:id", handler.Delete)
	engine.POST("/v0/admin/customers/:id/points", handler.AdjustPoints)
	return engine, conn
}

func TestCustomerCreateAndGet(t *testing.T) {
	engine, _ := newCustomerEngine(t)

	create := httptest.NewRecorder()
	engine.ServeHTTP(create, httptest.NewRequest(http.MethodPost, "/v0/admin/customers",
		strings.NewReader(`{"name": "Ada", "email": "ada@example.com"}`)))
	if create.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", create.Code, create.Body.String())
	}

	var created struct {
		ID uint64 `json:"id"`
	}
	if errDecode := json.Unmarshal(create.Body.Bytes(), &created); errDecode != nil {
		t.Fatalf("decode create response: %v", errDecode)
	}

	get := httptest.NewRecorder()
	engine.ServeHTTP(get, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/v0/admin/customers/%d", created.ID), nil))
	if get.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", get.Code)
	}

	dup := httptest.NewRecorder()
	engine.ServeHTTP(dup, httptest.NewRequest(http.MethodPost, "/v0/admin/customers",
		strings.NewReader(`{"name": "Ada Again", "email": "ada@example.com"}`)))
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", dup.Code)
	}
}

func TestCustomerAdjustPointsRecomputesTier(t *testing.T) {
	engine, conn := newCustomerEngine(t)

	for _, tier := range []models.Tier{
		{Name: "silver", MinimumPoints: 100},
		{Name: "gold", MinimumPoints: 1000},
	} {
		if errSeed := conn.Create(&tier).Error; errSeed != nil {
			t.Fatalf("seed tier: %v", errSeed)
		}
	}
	customer := models.Customer{Name: "Ada", Email: "ada@example.com", Points: 950, Tier: "silver", Active: true}
	if errSeed := conn.Create(&customer).Error; errSeed != nil {
		t.Fatalf("seed customer: %v", errSeed)
	}

	adjust := httptest.NewRecorder()
	engine.ServeHTTP(adjust, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/v0/admin/customers/%d/points", customer.ID),
		strings.NewReader(`{"delta": 100, "reason": "goodwill"}`)))
	if adjust.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", adjust.Code, adjust.Body.String())
	}

	var body struct {
		Points int64  `json:"points"`
		Tier   string `json:"tier"`
	}
	if errDecode := json.Unmarshal(adjust.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if body.Points != 1050 || body.Tier != "gold" {
		t.Fatalf("expected 1050 points in gold, got %+v", body)
	}
}

func TestCustomerAdjustPointsFloorsAtZero(t *testing.T) {
	engine, conn := newCustomerEngine(t)

	customer := models.Customer{Name: "Ada", Email: "ada@example.com", Points: 50, Active: true}
	if errSeed := conn.Create(&customer).Error; errSeed != nil {
		t.Fatalf("seed customer: %v", errSeed)
	}

	adjust := httptest.NewRecorder()
	engine.ServeHTTP(adjust, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/v0/admin/customers/%d/points", customer.ID),
		strings.NewReader(`{"delta": -200}`)))
	if adjust.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", adjust.Code)
	}

	var reloaded models.Customer
	if errFind := conn.First(&reloaded, customer.ID).Error; errFind != nil {
		t.Fatalf("reload customer: %v", errFind)
	}
	if reloaded.Points != 0 {
		t.Fatalf("expected balance floored at 0, got %d", reloaded.Points)
	}
}

func TestCustomerUpdateUnknownID(t *testing.T) {
	engine, _ := newCustomerEngine(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v0/admin/customers/9999",
		strings.NewReader(`{"name": "Nobody"}`)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
