package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"blog-service/internal/service"
	"blog-service/internal/token"
)

// AdminHandler handles admin sessions and moderation
type AdminHandler struct {
	responder
	auth  *service.AuthService
	blogs *service.BlogService
}

func NewAdminHandler(auth *service.AuthService, blogs *service.BlogService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{responder: responder{logger: logger}, auth: auth, blogs: blogs}
}

type blockRequest struct {
	Blocked bool `json:"blocked"`
}

func (h *AdminHandler) RegisterRoutes(r chi.Router, guards *Guards) {
	r.Route("/admin", func(r chi.Router) {
		r.With(guards.AdminRefresh).Post("/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(guards.AdminAccess)
			r.Put("/logout", h.Logout)
			r.Delete("/blogs/{blogID}", h.DeleteBlog)
			r.Patch("/users/{userID}/block", h.SetUserBlocked)
		})
	})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.AdminLogout(r.Context(), claimsFrom(r.Context()), requestMeta(r)); err != nil {
		h.fail(w, err, "Logout failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Admin logged out successfully"))
}

func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	access, err := h.auth.AdminRefresh(r.Context(), claimsFrom(r.Context()), requestMeta(r))
	if err != nil {
		h.fail(w, err, "Token refresh failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(accessTokenResponse{AccessToken: access}, ""))
}

// DeleteBlog soft-deletes a blog
// @Router /admin/blogs/{blogID} [delete]
func (h *AdminHandler) DeleteBlog(w http.ResponseWriter, r *http.Request) {
	admin := claimsFrom(r.Context()).User.String(token.KeyUsername)
	if err := h.blogs.Delete(r.Context(), admin, chi.URLParam(r, "blogID")); err != nil {
		h.fail(w, err, "Failed to delete blog")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Blog deleted successfully"))
}

// SetUserBlocked blocks or unblocks a user
// @Router /admin/users/{userID}/block [patch]
func (h *AdminHandler) SetUserBlocked(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err, "Invalid request body")
		return
	}
	userID := chi.URLParam(r, "userID")
	if err := h.auth.SetUserBlocked(r.Context(), claimsFrom(r.Context()), userID, req.Blocked, requestMeta(r)); err != nil {
		h.fail(w, err, "Failed to update user")
		return
	}
	msg := "User unblocked successfully"
	if req.Blocked {
		msg = "User blocked successfully"
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, msg))
}
