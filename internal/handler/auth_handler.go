package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"blog-service/internal/service"
	"blog-service/internal/util"
)

// AuthHandler handles HTTP requests for verification and sessions
type AuthHandler struct {
	responder
	auth *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{responder: responder{logger: logger}, auth: auth}
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// RegisterRoutes mounts the public and user-session routes under /auth.
// limit wraps the credential endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router, guards *Guards, limit func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/email-verification", h.RequestEmailVerification)
			r.Post("/otp/resend", h.ResendOTP)
			r.Post("/otp/verify", h.VerifyOTP)
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
		})

		r.With(guards.UserAccess).Put("/logout", h.Logout)
		r.With(guards.UserRefresh).Post("/refresh", h.Refresh)
	})
}

// RequestEmailVerification sends a verification code
// @Router /auth/email-verification [post]
func (h *AuthHandler) RequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err, "Invalid request body")
		return
	}
	if err := h.auth.RequestEmailVerification(r.Context(), req.Email, requestMeta(r)); err != nil {
		h.fail(w, err, "Failed to send verification code")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "A verification code has been sent to your email"))
}

// ResendOTP sends a fresh code and restarts its expiry
// @Router /auth/otp/resend [post]
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err, "Invalid request body")
		return
	}
	if err := h.auth.ResendOTP(r.Context(), req.Email, requestMeta(r)); err != nil {
		h.fail(w, err, "Failed to resend verification code")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "OTP has been resent to your email"))
}

// VerifyOTP consumes a verification code
// @Router /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err, "Invalid request body")
		return
	}
	if err := h.auth.VerifyOTP(r.Context(), req.Email, req.OTP, requestMeta(r)); err != nil {
		h.fail(w, err, "Verification failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Email verified successfully"))
}

// Signup registers a user
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err, "Invalid request body")
		return
	}
	user, err := h.auth.Signup(r.Context(), req, requestMeta(r))
	if err != nil {
		h.fail(w, err, "Failed to register user")
		return
	}
	h.respondWithJSON(w, http.StatusCreated, successResponse(user.Profile(), "User registered successfully"))
}

// Login issues an access and refresh token pair
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err, "Invalid request body")
		return
	}
	res, err := h.auth.Login(r.Context(), req, requestMeta(r))
	if err != nil {
		h.fail(w, err, "Login failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(res, "Login successful"))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if err := h.auth.Logout(r.Context(), claims, requestMeta(r)); err != nil {
		h.fail(w, err, "Logout failed")
		return
	}
	h.logger.Info("User logged out", util.String("user_id", claims.User.UserID()))
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "User logged out successfully"))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	access, err := h.auth.Refresh(r.Context(), claimsFrom(r.Context()), requestMeta(r))
	if err != nil {
		h.fail(w, err, "Token refresh failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(accessTokenResponse{AccessToken: access}, ""))
}
