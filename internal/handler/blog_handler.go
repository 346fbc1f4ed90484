package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"blog-service/internal/models"
	"blog-service/internal/service"
	"blog-service/internal/util"
)

// BlogHandler handles HTTP requests for blogs, reactions and comments
type BlogHandler struct {
	responder
	blogs     *service.BlogService
	maxUpload int64
}

// NewBlogHandler creates a new blog handler
func NewBlogHandler(blogs *service.BlogService, maxUpload int64, logger *zap.Logger) *BlogHandler {
	return &BlogHandler{responder: responder{logger: logger}, blogs: blogs, maxUpload: maxUpload}
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// RegisterRoutes registers all blog routes
func (h *BlogHandler) RegisterRoutes(r chi.Router, guards *Guards) {
	r.Route("/blogs", func(r chi.Router) {
		// Public reads
		r.Get("/", h.Feed)
		r.Get("/summary", h.Summaries)
		r.Get("/search", h.Search)
		r.Get("/{blogID}", h.GetForEdit)

		r.Group(func(r chi.Router) {
			r.Use(guards.UserAccess)
			r.Post("/", h.Create)
			r.Put("/{blogID}", h.Update)
			r.Post("/{blogID}/like", h.react(models.ReactionLike))
			r.Post("/{blogID}/dislike", h.react(models.ReactionDislike))
			r.Post("/{blogID}/comments", h.Comment)
		})
	})
}

// Create publishes a blog from a multipart form
// @Summary Create a blog
// @Accept multipart/form-data
// @Param description formData string true "At least 50 words"
// @Param photo formData file false "jpg, jpeg or png"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Router /blogs [post]
func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, h.maxUpload); err != nil {
		h.fail(w, err, "Invalid form")
		return
	}
	photo, done, err := formFile(r, "photo")
	if err != nil {
		h.fail(w, err, "Invalid form")
		return
	}
	defer done()

	userID := claimsFrom(r.Context()).User.UserID()
	blog, err := h.blogs.Create(r.Context(), userID, r.FormValue("description"), photo)
	if err != nil {
		h.fail(w, err, "Failed to publish blog")
		return
	}
	h.respondWithJSON(w, http.StatusCreated, successResponse(blog, "Your blog has been published successfully"))
}

// Feed lists blogs with their authors
// @Router /blogs [get]
func (h *BlogHandler) Feed(w http.ResponseWriter, r *http.Request) {
	blogs, err := h.blogs.Feed(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to list blogs")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(blogs, ""))
}

func (h *BlogHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	blogs, err := h.blogs.Summaries(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to list blogs")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(blogs, ""))
}

// Search runs a full text query over blog descriptions
// @Param q query string true "Search text"
// @Param limit query int false "Maximum results"
// @Router /blogs/search [get]
func (h *BlogHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	blogs, err := h.blogs.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.fail(w, err, "Search failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(blogs, ""))
}

func (h *BlogHandler) GetForEdit(w http.ResponseWriter, r *http.Request) {
	blog, err := h.blogs.GetForEdit(r.Context(), chi.URLParam(r, "blogID"))
	if err != nil {
		h.fail(w, err, "Failed to load blog")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(blog, ""))
}

func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, h.maxUpload); err != nil {
		h.fail(w, err, "Invalid form")
		return
	}
	photo, done, err := formFile(r, "photo")
	if err != nil {
		h.fail(w, err, "Invalid form")
		return
	}
	defer done()

	userID := claimsFrom(r.Context()).User.UserID()
	if err := h.blogs.Update(r.Context(), userID, chi.URLParam(r, "blogID"), r.FormValue("description"), photo); err != nil {
		h.fail(w, err, "Failed to update blog")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Blog updated successfully"))
}

func (h *BlogHandler) react(reaction models.Reaction) http.HandlerFunc {
	done := "Blog liked successfully"
	already := "You already liked this blog"
	if reaction == models.ReactionDislike {
		done = "Blog disliked successfully"
		already = "You already disliked this blog"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID := claimsFrom(r.Context()).User.UserID()
		blogID := chi.URLParam(r, "blogID")
		applied, err := h.blogs.React(r.Context(), userID, blogID, reaction)
		if err != nil {
			h.fail(w, err, "Failed to record reaction")
			return
		}
		if !applied {
			h.respondWithJSON(w, http.StatusOK, successResponse(nil, already))
			return
		}
		h.logger.Debug("Reaction recorded",
			util.String("blog_id", blogID),
			util.String("reaction", string(reaction)),
		)
		h.respondWithJSON(w, http.StatusOK, successResponse(nil, done))
	}
}

func (h *BlogHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err, "Invalid request body")
		return
	}
	userID := claimsFrom(r.Context()).User.UserID()
	c, err := h.blogs.Comment(r.Context(), userID, chi.URLParam(r, "blogID"), req.Comment)
	if err != nil {
		h.fail(w, err, "Failed to add comment")
		return
	}
	h.respondWithJSON(w, http.StatusCreated, successResponse(c, "Comment added successfully"))
}
