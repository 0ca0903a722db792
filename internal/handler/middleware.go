package handler

import (
	"context"
	"net/http"

	"admin-auth-service/internal/model"
	"admin-auth-service/internal/session"
)

type contextKey string

const sessionContextKey contextKey = "admin_session"

// SessionFromContext returns the validated session injected by RequireAdmin.
func SessionFromContext(ctx context.Context) (*model.AdminSession, bool) {
	adminSession, ok := ctx.Value(sessionContextKey).(*model.AdminSession)
	return adminSession, ok
}

// RequireAdmin validates the session header and enforces a minimum access
// level before the wrapped handler runs. The validated session is placed in
// the request context.
func RequireAdmin(sessions *session.Manager, required model.AccessLevel) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionHeader)
			if sessionID == "" {
				respondWithJSON(w, http.StatusUnauthorized, Response{
					Success: false,
					Error:   "Admin authentication required",
				})
				return
			}

			adminSession, err := sessions.Validate(r.Context(), sessionID, clientOrigin(r))
			if err != nil {
				respondWithJSON(w, http.StatusUnauthorized, Response{
					Success: false,
					Error:   "Invalid or expired admin session",
				})
				return
			}

			if !adminSession.AccessLevel.Authorizes(required) {
				respondWithJSON(w, http.StatusForbidden, Response{
					Success: false,
					Error:   "Insufficient admin privileges",
				})
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, adminSession)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
