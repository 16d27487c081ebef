package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/db"
	"github.com/perkbase/loyalty-admin/internal/models"
	"gorm.io/gorm"
)

func openAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:audit_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func newAuditEngine(conn *gorm.DB, handlerStatus int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	recorder := NewRecorder(conn)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("adminID", uint64(7))
		c.Next()
	})
	engine.POST("/v0/admin/offers", Middleware(recorder, "offer.create", "offer"), func(c *gin.Context) {
		c.JSON(handlerStatus, gin.H{"ok": handlerStatus < 300})
	})
	return engine
}

func TestMiddlewareRecordsSuccessfulMutation(t *testing.T) {
	conn := openAuditTestDB(t)
	engine := newAuditEngine(conn, http.StatusCreated)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v0/admin/offers",
		strings.NewReader(`{"merchant": "acme", "password": "never-store-me"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("handler status: %d", rec.Code)
	}

	// The write runs synchronously inside the middleware.
	var entry models.AuditLog
	if errFind := conn.Order("id DESC").First(&entry).Error; errFind != nil {
		t.Fatalf("load audit entry: %v", errFind)
	}
	if entry.AdminID != 7 || entry.Action != "offer.create" || entry.TargetModel != "offer" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	var details map[string]any
	if errDecode := json.Unmarshal(entry.Details, &details); errDecode != nil {
		t.Fatalf("decode details: %v", errDecode)
	}
	if details["merchant"] != "acme" {
		t.Fatalf("expected merchant in details, got %v", details)
	}
	if _, leaked := details["password"]; leaked {
		t.Fatal("password must be stripped from audit details")
	}
}

func TestMiddlewareSkipsFailedRequests(t *testing.T) {
	conn := openAuditTestDB(t)
	engine := newAuditEngine(conn, http.StatusBadRequest)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v0/admin/offers",
		strings.NewReader(`{"merchant": "acme"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("handler status: %d", rec.Code)
	}

	var count int64
	if errCount := conn.Model(&models.AuditLog{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count entries: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no audit rows for a failed request, got %d", count)
	}
}

func TestMiddlewareRestoresRequestBody(t *testing.T) {
	conn := openAuditTestDB(t)
	gin.SetMode(gin.TestMode)

	recorder := NewRecorder(conn)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("adminID", uint64(7))
		c.Next()
	})
	engine.POST("/echo", Middleware(recorder, "echo", "none"), func(c *gin.Context) {
		var body map[string]any
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		c.JSON(http.StatusOK, body)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo",
		strings.NewReader(`{"value": 1}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected handler to read the restored body, got %d: %s", rec.Code, rec.Body.String())
	}

	// A body past the audit capture cap still reaches the handler
	// intact; only the stored copy is truncated.
	large := fmt.Sprintf(`{"padding": %q, "value": 2}`,
		strings.Repeat("x", maxCapturedBodyBytes+1024))
	recLarge := httptest.NewRecorder()
	engine.ServeHTTP(recLarge, httptest.NewRequest(http.MethodPost, "/echo",
		strings.NewReader(large)))
	if recLarge.Code != http.StatusOK {
		t.Fatalf("expected handler to read an oversized body, got %d: %s", recLarge.Code, recLarge.Body.String())
	}
}
