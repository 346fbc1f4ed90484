package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"blog-service/internal/service"
)

type ProfileHandler struct {
	responder
	profiles  *service.ProfileService
	maxUpload int64
}

func NewProfileHandler(profiles *service.ProfileService, maxUpload int64, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{responder: responder{logger: logger}, profiles: profiles, maxUpload: maxUpload}
}

func (h *ProfileHandler) RegisterRoutes(r chi.Router, guards *Guards) {
	r.Route("/profile/{userID}", func(r chi.Router) {
		r.Use(guards.UserAccess)
		r.Get("/", h.Get)
		r.Put("/", h.Update)
	})
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err, "Failed to load profile")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(p, ""))
}

// Update takes a multipart form with username, email and an optional image.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, h.maxUpload); err != nil {
		h.fail(w, err, "Invalid form")
		return
	}
	image, done, err := formFile(r, "image")
	if err != nil {
		h.fail(w, err, "Invalid form")
		return
	}
	defer done()

	callerID := claimsFrom(r.Context()).User.UserID()
	p, err := h.profiles.Update(r.Context(), callerID, chi.URLParam(r, "userID"), service.ProfileUpdate{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Image:    image,
	})
	if err != nil {
		h.fail(w, err, "Failed to update profile")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(p, "Profile updated successfully"))
}
