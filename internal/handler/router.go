package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"blog-service/internal/config"
	"blog-service/internal/guard"
	"blog-service/internal/util"
)

// Guards are the access guards as chi middleware.
type Guards struct {
	UserAccess   func(http.Handler) http.Handler
	UserRefresh  func(http.Handler) http.Handler
	AdminAccess  func(http.Handler) http.Handler
	AdminRefresh func(http.Handler) http.Handler
}

func NewGuards(set *guard.Set, logger *zap.Logger) *Guards {
	return &Guards{
		UserAccess:   Authenticate(set.UserAccess, logger),
		UserRefresh:  Authenticate(set.UserRefresh, logger),
		AdminAccess:  Authenticate(set.AdminAccess, logger),
		AdminRefresh: Authenticate(set.AdminRefresh, logger),
	}
}

// HealthReporter reports the status of every dependency by name.
type HealthReporter interface {
	Health(ctx context.Context) (map[string]string, bool)
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth    *AuthHandler
	Admin   *AdminHandler
	Profile *ProfileHandler
	Blog    *BlogHandler
	Health  HealthReporter
	Limiter Limiter
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(cfg *config.Config, h Handlers, guards *Guards, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	// Enforce HTTPS-only in production
	if cfg.IsProduction() && cfg.Server.EnableTLS {
		router.Use(requireHTTPS)
	}

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"blog-service"}`))
	})

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit.Enabled && h.Limiter != nil {
		limit = RateLimit(h.Limiter, "auth", cfg.RateLimit.AuthRequests, cfg.RateLimit.AuthWindow, logger)
	}

	// API routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler(h.Health, logger))
		h.Auth.RegisterRoutes(r, guards, limit)
		h.Admin.RegisterRoutes(r, guards)
		h.Profile.RegisterRoutes(r, guards)
		h.Blog.RegisterRoutes(r, guards)
	})

	// 404 handler
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"endpoint not found"}`))
	})

	// Method not allowed handler
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"success":false,"error":"method not allowed"}`))
	})

	return router
}

func healthHandler(reporter HealthReporter, logger *zap.Logger) http.HandlerFunc {
	h := responder{logger: logger}
	return func(w http.ResponseWriter, r *http.Request) {
		if reporter == nil {
			h.respondWithJSON(w, http.StatusOK, successResponse(map[string]string{}, "healthy"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status, ok := reporter.Health(ctx)
		if !ok {
			util.Warn("Health check failed", util.Any("dependencies", status))
			h.respondWithJSON(w, http.StatusServiceUnavailable, Response{Success: false, Data: status, Message: "unhealthy"})
			return
		}
		h.respondWithJSON(w, http.StatusOK, successResponse(status, "healthy"))
	}
}
