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
	"github.com/perkbase/loyalty-admin/internal/referral"
	"github.com/perkbase/loyalty-admin/internal/rules"
	"gorm.io/gorm"
)

func newReferralEngine(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := openHandlerTestDB(t, "referral_handler")

	ruleStore := rules.NewStore(conn, nil)
	tracker := referral.NewTracker(conn, ruleStore)
	service := referral.NewService(conn, ruleStore, tracker, "https://example.com/join")
	handler := NewReferralProgramHandler(ruleStore, service)

	engine := gin.New()
	engine.Use(stubAdmin(1))
	engine.POST("/v0/admin/referral-program", handler.UpsertRule)
	engine.GET("/v0/admin/referral-program", handler.GetRule)
	engine.POST("/v0/admin/referral-program/link", handler.CreateLink)
	engine.POST("/v0/admin/referral-program/referrals", handler.RegisterReferee)
	engine.GET("/v0/admin/referral-program/referrals/:id", handler.Track)
	engine.POST("/v0/admin/referral-program/complete", handler.Complete)
	return engine, conn
}

func seedHandlerCustomer(t *testing.T, conn *gorm.DB, name string) *models.Customer {
	t.Helper()
	customer := models.Customer{Name: name, Email: name + "@example.com", Active: true}
	if errCreate := conn.Create(&customer).Error; errCreate != nil {
		t.Fatalf("seed customer: %v", errCreate)
	}
	return &customer
}

const referralRuleBody = `{
	"points_for_referrer": 100,
	"points_for_referee": 50,
	"minimum_purchase_amount": 25,
	"expiry_days": 14,
	"max_referrals_per_user": 5
}`

func TestReferralRuleUpsertStatusCodes(t *testing.T) {
	engine, _ := newReferralEngine(t)

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program",
		strings.NewReader(referralRuleBody)))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first save, got %d: %s", first.Code, first.Body.String())
	}

	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program",
		strings.NewReader(referralRuleBody)))
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d: %s", second.Code, second.Body.String())
	}
}

func TestReferralRuleGetWithoutProgram(t *testing.T) {
	engine, _ := newReferralEngine(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v0/admin/referral-program", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a program, got %d", rec.Code)
	}
}

func TestReferralLinkWithoutProgram(t *testing.T) {
	engine, conn := newReferralEngine(t)
	referrer := seedHandlerCustomer(t, conn, "referrer")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program/link",
		strings.NewReader(fmt.Sprintf(`{"referrer_id": %d}`, referrer.ID))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a program, got %d", rec.Code)
	}
}

func TestReferralRegisterTrackCompleteFlow(t *testing.T) {
	engine, conn := newReferralEngine(t)

	setup := httptest.NewRecorder()
	engine.ServeHTTP(setup, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program",
		strings.NewReader(referralRuleBody)))
	if setup.Code != http.StatusCreated {
		t.Fatalf("seed rule: %d", setup.Code)
	}

	referrer := seedHandlerCustomer(t, conn, "referrer")
	referee := seedHandlerCustomer(t, conn, "referee")

	register := httptest.NewRecorder()
	engine.ServeHTTP(register, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program/referrals",
		strings.NewReader(fmt.Sprintf(`{"referrer_id": %d, "referee_id": %d}`, referrer.ID, referee.ID))))
	if register.Code != http.StatusCreated {
		t.Fatalf("expected 201 on register, got %d: %s", register.Code, register.Body.String())
	}

	var registered struct {
		ID     uint64 `json:"id"`
		Status string `json:"status"`
	}
	if errDecode := json.Unmarshal(register.Body.Bytes(), &registered); errDecode != nil {
		t.Fatalf("decode register response: %v", errDecode)
	}
	if registered.Status != "pending" {
		t.Fatalf("expected pending entry, got %s", registered.Status)
	}

	track := httptest.NewRecorder()
	engine.ServeHTTP(track, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/v0/admin/referral-program/referrals/%d", registered.ID), nil))
	if track.Code != http.StatusOK {
		t.Fatalf("expected 200 on track, got %d", track.Code)
	}

	tooSmall := httptest.NewRecorder()
	engine.ServeHTTP(tooSmall, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program/complete",
		strings.NewReader(fmt.Sprintf(`{"entry_id": %d, "purchase_amount": 10}`, registered.ID))))
	if tooSmall.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for small purchase, got %d", tooSmall.Code)
	}

	complete := httptest.NewRecorder()
	engine.ServeHTTP(complete, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program/complete",
		strings.NewReader(fmt.Sprintf(`{"entry_id": %d, "purchase_amount": 30}`, registered.ID))))
	if complete.Code != http.StatusOK {
		t.Fatalf("expected 200 on complete, got %d: %s", complete.Code, complete.Body.String())
	}

	again := httptest.NewRecorder()
	engine.ServeHTTP(again, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program/complete",
		strings.NewReader(fmt.Sprintf(`{"entry_id": %d, "purchase_amount": 30}`, registered.ID))))
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeated completion, got %d", again.Code)
	}

	var updatedReferrer models.Customer
	if errFind := conn.First(&updatedReferrer, referrer.ID).Error; errFind != nil {
		t.Fatalf("reload referrer: %v", errFind)
	}
	if updatedReferrer.Points != 100 {
		t.Fatalf("expected referrer balance 100, got %d", updatedReferrer.Points)
	}
}

func TestReferralTrackWithoutProgramIsClientError(t *testing.T) {
	engine, conn := newReferralEngine(t)

	setup := httptest.NewRecorder()
	engine.ServeHTTP(setup, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program",
		strings.NewReader(referralRuleBody)))
	if setup.Code != http.StatusCreated {
		t.Fatalf("seed rule: %d", setup.Code)
	}

	referrer := seedHandlerCustomer(t, conn, "referrer")
	referee := seedHandlerCustomer(t, conn, "referee")

	register := httptest.NewRecorder()
	engine.ServeHTTP(register, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program/referrals",
		strings.NewReader(fmt.Sprintf(`{"referrer_id": %d, "referee_id": %d}`, referrer.ID, referee.ID))))
	if register.Code != http.StatusCreated {
		t.Fatalf("register: %d", register.Code)
	}
	var registered struct {
		ID uint64 `json:"id"`
	}
	if errDecode := json.Unmarshal(register.Body.Bytes(), &registered); errDecode != nil {
		t.Fatalf("decode register response: %v", errDecode)
	}

	// Deactivate the rule underneath the pending entry.
	if errDeactivate := conn.Model(&models.ReferralProgramRule{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error; errDeactivate != nil {
		t.Fatalf("deactivate rule: %v", errDeactivate)
	}

	track := httptest.NewRecorder()
	engine.ServeHTTP(track, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/v0/admin/referral-program/referrals/%d", registered.ID), nil))
	if track.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 tracking without a program, got %d: %s", track.Code, track.Body.String())
	}
}

func TestReferralRegisterUnknownCustomer(t *testing.T) {
	engine, conn := newReferralEngine(t)

	setup := httptest.NewRecorder()
	engine.ServeHTTP(setup, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program",
		strings.NewReader(referralRuleBody)))
	if setup.Code != http.StatusCreated {
		t.Fatalf("seed rule: %d", setup.Code)
	}

	referrer := seedHandlerCustomer(t, conn, "referrer")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program/referrals",
		strings.NewReader(fmt.Sprintf(`{"referrer_id": %d, "referee_id": 9999}`, referrer.ID))))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown referee, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReferralRegisterSelfAndDuplicate(t *testing.T) {
	engine, conn := newReferralEngine(t)

	setup := httptest.NewRecorder()
	engine.ServeHTTP(setup, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program",
		strings.NewReader(referralRuleBody)))
	if setup.Code != http.StatusCreated {
		t.Fatalf("seed rule: %d", setup.Code)
	}

	referrer := seedHandlerCustomer(t, conn, "referrer")
	referee := seedHandlerCustomer(t, conn, "referee")
	other := seedHandlerCustomer(t, conn, "other")

	self := httptest.NewRecorder()
	engine.ServeHTTP(self, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program/referrals",
		strings.NewReader(fmt.Sprintf(`{"referrer_id": %d, "referee_id": %d}`, referrer.ID, referrer.ID))))
	if self.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for self referral, got %d", self.Code)
	}

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program/referrals",
		strings.NewReader(fmt.Sprintf(`{"referrer_id": %d, "referee_id": %d}`, referrer.ID, referee.ID))))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}

	dup := httptest.NewRecorder()
	engine.ServeHTTP(dup, httptest.NewRequest(http.MethodPost, "/v0/admin/referral-program/referrals",
		strings.NewReader(fmt.Sprintf(`{"referrer_id": %d, "referee_id": %d}`, other.ID, referee.ID))))
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate referee, got %d", dup.Code)
	}
}
