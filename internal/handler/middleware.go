package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"blog-service/internal/apperrors"
	"blog-service/internal/guard"
	"blog-service/internal/token"
	"blog-service/internal/util"
)

// requireHTTPS rejects any request that wasn't made over TLS
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUpgradeRequired)
			_, _ = w.Write([]byte(`{"success":false,"error":"https required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoggerMiddleware creates a middleware that logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("request_id", middleware.GetReqID(r.Context())),
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// Authenticate admits requests that pass g and stores the claims in the
// request context.
func Authenticate(g *guard.Guard, logger *zap.Logger) func(http.Handler) http.Handler {
	h := responder{logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.Admit(r.Header.Get("Authorization"))
			if err != nil {
				logger.Debug("Request refused by guard",
					util.String("guard", g.Name()),
					util.String("path", r.URL.Path),
					util.ErrorField(err),
				)
				h.fail(w, err, "Access denied")
				return
			}
			next.ServeHTTP(w, r.WithContext(guard.WithClaims(r.Context(), claims)))
		})
	}
}

// claimsFrom returns the admitted claims. Routes behind Authenticate always
// carry them.
func claimsFrom(ctx context.Context) *token.Claims {
	c, ok := guard.ClaimsFromContext(ctx)
	if !ok {
		return &token.Claims{User: token.Payload{}}
	}
	return c
}

// Limiter is satisfied by *redis.RateLimitCache.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

var errRateLimited = apperrors.New(apperrors.ErrInvalidInput, "too many requests")

// RateLimit caps requests per client IP under scope. The limiter failing
// lets the request through.
func RateLimit(l Limiter, scope string, limit int, window time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	h := responder{logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + requestMeta(r).IPAddress
			ok, retryAfter, err := l.Allow(r.Context(), key, limit, window)
			if err != nil {
				logger.Warn("Rate limiter unavailable", util.String("scope", scope), util.ErrorField(err))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				secs := int(retryAfter.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				h.respondWithError(w, http.StatusTooManyRequests, errRateLimited, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
