package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-auth-service/internal/audit"
	"admin-auth-service/internal/auth"
	"admin-auth-service/internal/session"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrInvalidCode, http.StatusUnauthorized},
		{session.ErrSessionNotFound, http.StatusUnauthorized},
		{session.ErrSessionExpired, http.StatusUnauthorized},
		{auth.ErrRateLimited, http.StatusTooManyRequests},
		{auth.ErrEmergencyExpired, http.StatusGone},
		{auth.ErrEmergencyConsumed, http.StatusGone},
		{auth.ErrSystem, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), "error %v", tt.err)
	}
}

func newEmergencyHandler(t *testing.T, operatorToken string) *AdminHandler {
	t.Helper()
	recorder := audit.NewRecorder(audit.NewMemorySink())
	t.Cleanup(func() { _ = recorder.Close() })

	issuer := auth.NewEmergencyIssuer(recorder, 15*time.Minute)
	redeemer := auth.NewEmergencyRedeemer(auth.NewMemoryRedemptionStore(), recorder, 15*time.Minute)
	return NewAdminHandler(nil, nil, issuer, redeemer, nil, "", operatorToken, nil, nil)
}

func TestEmergencyAccessRequiresOperatorToken(t *testing.T) {
	h := newEmergencyHandler(t, "operator-secret")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/emergency-access", nil)
	rec := httptest.NewRecorder()
	h.EmergencyAccess(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/emergency-access", nil)
	req.Header.Set(OperatorHeader, "wrong")
	rec = httptest.NewRecorder()
	h.EmergencyAccess(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/emergency-access", nil)
	req.Header.Set(OperatorHeader, "operator-secret")
	rec = httptest.NewRecorder()
	h.EmergencyAccess(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "emergency_code")
	assert.Contains(t, rec.Body.String(), "valid_until")
}

func TestEmergencyAccessDisabledWithoutConfiguredToken(t *testing.T) {
	h := newEmergencyHandler(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/emergency-access", nil)
	req.Header.Set(OperatorHeader, "")
	rec := httptest.NewRecorder()
	h.EmergencyAccess(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, "empty configured token disables the endpoint")
}

func TestEmergencyRedeemEndpoint(t *testing.T) {
	h := newEmergencyHandler(t, "operator-secret")

	issueReq := httptest.NewRequest(http.MethodPost, "/api/v1/admin/emergency-access", nil)
	issueReq.Header.Set(OperatorHeader, "operator-secret")
	issueRec := httptest.NewRecorder()
	h.EmergencyAccess(issueRec, issueReq)
	require.Equal(t, http.StatusOK, issueRec.Code)

	var issued struct {
		Data struct {
			Code       string `json:"emergency_code"`
			ValidUntil string `json:"valid_until"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(issueRec.Body.Bytes(), &issued))
	require.NotEmpty(t, issued.Data.Code)

	body := fmt.Sprintf(`{"emergency_code":%q,"valid_until":%q}`, issued.Data.Code, issued.Data.ValidUntil)
	redeem := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/emergency-access/redeem", strings.NewReader(body))
		req.Header.Set(OperatorHeader, token)
		rec := httptest.NewRecorder()
		h.EmergencyRedeem(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, redeem("wrong").Code)
	assert.Equal(t, http.StatusOK, redeem("operator-secret").Code)
	assert.Equal(t, http.StatusGone, redeem("operator-secret").Code, "a code redeems exactly once")
}

func TestEmergencyRedeemRejectsBadBody(t *testing.T) {
	h := newEmergencyHandler(t, "operator-secret")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/emergency-access/redeem", strings.NewReader("not json"))
	req.Header.Set(OperatorHeader, "operator-secret")
	rec := httptest.NewRecorder()
	h.EmergencyRedeem(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/emergency-access/redeem",
		strings.NewReader(`{"emergency_code":"abc","valid_until":"not-a-time"}`))
	req.Header.Set(OperatorHeader, "operator-secret")
	rec = httptest.NewRecorder()
	h.EmergencyRedeem(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthReportsHealthy(t *testing.T) {
	checks := func(context.Context) map[string]error {
		return map[string]error{"redis": nil, "kafka": nil}
	}
	h := NewAdminHandler(nil, nil, nil, nil, nil, "", "", checks, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)
}

func TestHealthReportsDegradedBackend(t *testing.T) {
	checks := func(context.Context) map[string]error {
		return map[string]error{
			"redis": errors.New("connection refused"),
			"kafka": nil,
		}
	}
	h := NewAdminHandler(nil, nil, nil, nil, nil, "", "", checks, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, rec.Body.String(), `"kafka":"ok"`)
}
