package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/config"
	"github.com/perkbase/loyalty-admin/internal/models"
	"github.com/perkbase/loyalty-admin/internal/security"
	"gorm.io/gorm"
)

func newAuthEngine(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := openHandlerTestDB(t, "auth_handler")

	handler := NewAuthHandler(conn, config.JWTConfig{Secret: "test-secret", ExpiryMinutes: 60})
	engine := gin.New()
	engine.POST("/v0/admin/auth/login", handler.Login)
	engine.POST("/v0/admin/auth/login/totp", handler.LoginTOTP)
	return engine, conn
}

func seedAdmin(t *testing.T, conn *gorm.DB, username, password string, active bool) *models.Admin {
	t.Helper()
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	admin := models.Admin{Username: username, Password: hash, Active: active}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("seed admin: %v", errCreate)
	}
	return &admin
}

func TestLoginIssuesToken(t *testing.T) {
	engine, conn := newAuthEngine(t)
	seedAdmin(t, conn, "alice", "hunter22", true)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v0/admin/auth/login",
		strings.NewReader(`{"username": "alice", "password": "hunter22"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	claims, errParse := security.ParseAdminToken("test-secret", body.Token)
	if errParse != nil {
		t.Fatalf("parse issued token: %v", errParse)
	}
	if claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	engine, conn := newAuthEngine(t)
	seedAdmin(t, conn, "alice", "hunter22", true)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v0/admin/auth/login",
		strings.NewReader(`{"username": "alice", "password": "wrong"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	unknown := httptest.NewRecorder()
	engine.ServeHTTP(unknown, httptest.NewRequest(http.MethodPost, "/v0/admin/auth/login",
		strings.NewReader(`{"username": "nobody", "password": "hunter22"}`)))
	if unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", unknown.Code)
	}
}

func TestLoginRejectsDisabledAdmin(t *testing.T) {
	engine, conn := newAuthEngine(t)
	seedAdmin(t, conn, "alice", "hunter22", false)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v0/admin/auth/login",
		strings.NewReader(`{"username": "alice", "password": "hunter22"}`)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestLoginDemandsTOTPWhenEnrolled(t *testing.T) {
	engine, conn := newAuthEngine(t)
	admin := seedAdmin(t, conn, "alice", "hunter22", true)
	if errUpdate := conn.Model(&models.Admin{}).Where("id = ?", admin.ID).
		Update("totp_secret", "JBSWY3DPEHPK3PXP").Error; errUpdate != nil {
		t.Fatalf("set totp secret: %v", errUpdate)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v0/admin/auth/login",
		strings.NewReader(`{"username": "alice", "password": "hunter22"}`)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 mfa required, got %d", rec.Code)
	}

	badCode := httptest.NewRecorder()
	engine.ServeHTTP(badCode, httptest.NewRequest(http.MethodPost, "/v0/admin/auth/login/totp",
		strings.NewReader(`{"username": "alice", "password": "hunter22", "code": "000000"}`)))
	if badCode.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad code, got %d", badCode.Code)
	}
}
