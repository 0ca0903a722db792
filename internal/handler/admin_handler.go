package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"admin-auth-service/internal/auth"
	"admin-auth-service/internal/client"
	"admin-auth-service/internal/model"
	"admin-auth-service/internal/session"
	"admin-auth-service/internal/util"
)

// SessionHeader carries the bearer session token on every protected request.
const SessionHeader = "X-Admin-Session"

// OperatorHeader authorizes the break-glass endpoint. Emergency access must
// work when normal authentication is down, so it is guarded by a static
// operator token instead of a session.
const OperatorHeader = "X-Operator-Token"

// HealthFunc probes the configured backends and reports one error per
// unhealthy backend.
type HealthFunc func(ctx context.Context) map[string]error

// AdminHandler handles the admin authentication HTTP surface.
type AdminHandler struct {
	authService   *auth.Service
	sessions      *session.Manager
	issuer        *auth.EmergencyIssuer
	redeemer      *auth.EmergencyRedeemer
	esClient      *client.ESClient
	esIndex       string
	operatorToken string
	healthCheck   HealthFunc
	logger        *zap.Logger
}

func NewAdminHandler(
	authService *auth.Service,
	sessions *session.Manager,
	issuer *auth.EmergencyIssuer,
	redeemer *auth.EmergencyRedeemer,
	esClient *client.ESClient,
	esIndex string,
	operatorToken string,
	healthCheck HealthFunc,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		authService:   authService,
		sessions:      sessions,
		issuer:        issuer,
		redeemer:      redeemer,
		esClient:      esClient,
		esIndex:       esIndex,
		operatorToken: operatorToken,
		healthCheck:   healthCheck,
		logger:        logger,
	}
}

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		util.Error("Failed to encode response", zap.Error(err))
	}
}

func respondWithError(w http.ResponseWriter, err error, message string) {
	respondWithJSON(w, statusForError(err), Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidCode):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrEmergencyExpired), errors.Is(err, auth.ErrEmergencyConsumed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

type authenticateRequest struct {
	AccessLevel    string `json:"access_level"`
	MasterPassword string `json:"master_password"`
	TimeCode       string `json:"time_code"`
}

type authenticateResponse struct {
	SessionID   string `json:"session_id"`
	AccessLevel string `json:"access_level"`
	ExpiresAt   string `json:"expires_at"`
}

// Authenticate handles POST /admin/auth.
func (h *AdminHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	level, err := model.ParseAccessLevel(util.SanitizeInput(req.AccessLevel))
	if err != nil {
		// Unknown level reads the same as bad credentials to the caller.
		respondWithError(w, auth.ErrInvalidCredentials, "Authentication failed")
		return
	}

	adminSession, err := h.authService.Authenticate(r.Context(), auth.Request{
		AccessLevel:     level,
		MasterPassword:  req.MasterPassword,
		TimeCode:        req.TimeCode,
		OriginAddress:   clientOrigin(r),
		ClientSignature: r.UserAgent(),
	})
	if err != nil {
		respondWithError(w, err, "Authentication failed")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data: authenticateResponse{
			SessionID:   adminSession.SessionID,
			AccessLevel: string(adminSession.AccessLevel),
			ExpiresAt:   adminSession.ExpiresAt.Format(time.RFC3339),
		},
		Message: "Authenticated",
	})
}

// TOTPSetup handles GET /admin/totp-setup. Requires the highest level since
// the payload allows enrolling any authenticator.
func (h *AdminHandler) TOTPSetup(w http.ResponseWriter, r *http.Request) {
	level, err := model.ParseAccessLevel(util.SanitizeInput(r.URL.Query().Get("level")))
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "unknown access level",
		})
		return
	}

	data, err := h.authService.SetupData(level)
	if err != nil {
		respondWithError(w, err, "Failed to build setup data")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// Session handles GET /admin/session: echoes the validated session from the
// middleware, minus nothing — the caller already holds the token.
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	adminSession, ok := SessionFromContext(r.Context())
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, Response{
			Success: false,
			Error:   "Admin authentication required",
		})
		return
	}
	respondWithJSON(w, http.StatusOK, Response{Success: true, Data: adminSession})
}

// Logout handles POST /admin/logout. Idempotent.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		respondWithJSON(w, http.StatusUnauthorized, Response{
			Success: false,
			Error:   "Admin authentication required",
		})
		return
	}

	if err := h.sessions.Invalidate(r.Context(), sessionID, "explicit"); err != nil {
		respondWithError(w, err, "Logout failed")
		return
	}
	respondWithJSON(w, http.StatusOK, Response{Success: true, Message: "Logged out"})
}

// LogoutAll handles POST /admin/logout-all: terminates every session.
func (h *AdminHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	adminSession, _ := SessionFromContext(r.Context())
	requestedBy := ""
	if adminSession != nil {
		requestedBy = string(adminSession.AccessLevel)
	}

	if err := h.sessions.InvalidateAll(r.Context(), requestedBy); err != nil {
		respondWithError(w, err, "Failed to clear sessions")
		return
	}
	respondWithJSON(w, http.StatusOK, Response{Success: true, Message: "All sessions cleared"})
}

// EmergencyAccess handles POST /admin/emergency-access.
func (h *AdminHandler) EmergencyAccess(w http.ResponseWriter, r *http.Request) {
	if h.operatorToken == "" || r.Header.Get(OperatorHeader) != h.operatorToken {
		respondWithJSON(w, http.StatusUnauthorized, Response{
			Success: false,
			Error:   "operator token required",
		})
		return
	}

	grant, err := h.issuer.Issue(clientOrigin(r))
	if err != nil {
		respondWithError(w, err, "Failed to issue emergency access")
		return
	}
	respondWithJSON(w, http.StatusOK, Response{Success: true, Data: grant})
}

type emergencyRedeemRequest struct {
	EmergencyCode string `json:"emergency_code"`
	ValidUntil    string `json:"valid_until"`
}

// EmergencyRedeem handles POST /admin/emergency-access/redeem. The caller
// presents the grant exactly as issued; a code is consumable once.
func (h *AdminHandler) EmergencyRedeem(w http.ResponseWriter, r *http.Request) {
	if h.operatorToken == "" || r.Header.Get(OperatorHeader) != h.operatorToken {
		respondWithJSON(w, http.StatusUnauthorized, Response{
			Success: false,
			Error:   "operator token required",
		})
		return
	}

	var req emergencyRedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	validUntil, err := time.Parse(time.RFC3339, req.ValidUntil)
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid valid_until timestamp",
		})
		return
	}

	grant := &model.EmergencyAccessGrant{
		Code:       req.EmergencyCode,
		ValidUntil: validUntil,
	}
	if err := h.redeemer.Redeem(r.Context(), grant, clientOrigin(r)); err != nil {
		respondWithError(w, err, "Emergency redemption failed")
		return
	}
	respondWithJSON(w, http.StatusOK, Response{Success: true, Message: "Emergency access granted"})
}

// Health handles GET /health: a degraded backend turns the whole report
// degraded with a 503, but the process itself keeps serving.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	backends := map[string]string{}

	if h.healthCheck != nil {
		for name, err := range h.healthCheck(r.Context()) {
			if err != nil {
				backends[name] = err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
			} else {
				backends[name] = "ok"
			}
		}
	}

	respondWithJSON(w, code, Response{
		Success: code == http.StatusOK,
		Data: map[string]interface{}{
			"service":  "admin-auth-service",
			"status":   status,
			"backends": backends,
		},
	})
}

// SearchEvents handles GET /admin/events/search over the forensic index.
func (h *AdminHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	if h.esClient == nil {
		respondWithJSON(w, http.StatusServiceUnavailable, Response{
			Success: false,
			Error:   "event search is not enabled",
		})
		return
	}

	size := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			size = parsed
		}
	}

	query := map[string]interface{}{
		"size": size,
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
	if kind := util.SanitizeInput(r.URL.Query().Get("kind")); kind != "" {
		query["query"] = map[string]interface{}{
			"term": map[string]interface{}{"kind": kind},
		}
	} else {
		query["query"] = map[string]interface{}{"match_all": map[string]interface{}{}}
	}

	res, err := h.esClient.Search(r.Context(), h.esIndex, query)
	if err != nil {
		respondWithError(w, err, "Event search failed")
		return
	}

	var result map[string]interface{}
	if err := h.esClient.ParseResponse(res, &result); err != nil {
		respondWithError(w, err, "Event search failed")
		return
	}
	respondWithJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

// clientOrigin prefers the RealIP-resolved remote address.
func clientOrigin(r *http.Request) string {
	return r.RemoteAddr
}
