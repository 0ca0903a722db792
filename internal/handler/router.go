package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"admin-auth-service/internal/model"
	"admin-auth-service/internal/session"
	"admin-auth-service/internal/util"
)

// NewRouter configures the chi router with middleware and routes.
func NewRouter(adminHandler *AdminHandler, sessions *session.Manager, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", SessionHeader, OperatorHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", adminHandler.Health)

	router.Route("/api/v1/admin", func(r chi.Router) {
		r.Post("/auth", adminHandler.Authenticate)
		r.Post("/logout", adminHandler.Logout)
		r.Post("/emergency-access", adminHandler.EmergencyAccess)
		r.Post("/emergency-access/redeem", adminHandler.EmergencyRedeem)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(sessions, model.SecurityAdmin))
			r.Get("/session", adminHandler.Session)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(sessions, model.SystemAdmin))
			r.Get("/events/search", adminHandler.SearchEvents)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(sessions, model.SuperAdmin))
			r.Get("/totp-setup", adminHandler.TOTPSetup)
			r.Post("/logout-all", adminHandler.LogoutAll)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"method not allowed"}`))
	})

	return router
}

// LoggerMiddleware logs each HTTP request with status and latency.
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
