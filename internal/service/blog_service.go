package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog-service/internal/events"
	"blog-service/internal/models"
	"blog-service/internal/repository/postgres"
	"blog-service/internal/search"
	"blog-service/internal/util"
)

const (
	blogPhotoPrefix  = "blog"
	maxSearchResults = 50
)

// BlogService handles publishing, reading and reacting to blogs.
type BlogService struct {
	blogs     BlogStore
	users     UserStore
	objects   ObjectStore
	index     SearchIndex
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time

	// indexViaEvents leaves index writes to the event consumer.
	indexViaEvents bool
}

func NewBlogService(
	blogs BlogStore,
	users UserStore,
	objects ObjectStore,
	index SearchIndex,
	publisher events.Publisher,
	indexViaEvents bool,
	logger *zap.Logger,
) *BlogService {
	return &BlogService{
		blogs:          blogs,
		users:          users,
		objects:        objects,
		index:          index,
		publisher:      publisher,
		indexViaEvents: indexViaEvents,
		logger:         logger,
		now:            time.Now,
	}
}

// Create publishes a blog for userID. The photo is optional.
func (s *BlogService) Create(ctx context.Context, userID, description string, photo *Upload) (*models.Blog, error) {
	description = strings.TrimSpace(description)
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	url, err := s.upload(ctx, photo)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	blog := &models.Blog{
		BlogID:      uuid.NewString(),
		UserID:      userID,
		Photo:       url,
		Description: description,
		Likes:       []string{},
		Dislikes:    []string{},
		Comments:    []models.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.blogs.Create(ctx, blog); err != nil {
		return nil, external(err, "failed to create blog")
	}

	s.logger.Info("Blog created", util.String("blog_id", blog.BlogID), util.String("user_id", userID))
	s.reindex(ctx, models.EventBlogCreated, blog.BlogID, userID, description, now)
	return blog, nil
}

func (s *BlogService) Feed(ctx context.Context) ([]models.BlogWithAuthor, error) {
	out, err := s.blogs.Feed(ctx)
	if err != nil {
		return nil, external(err, "failed to list blogs")
	}
	return out, nil
}

func (s *BlogService) Summaries(ctx context.Context) ([]models.BlogSummary, error) {
	out, err := s.blogs.Summaries(ctx)
	if err != nil {
		return nil, external(err, "failed to list blogs")
	}
	return out, nil
}

// Search returns live blogs matching q in relevance order.
func (s *BlogService) Search(ctx context.Context, q string, limit int) ([]models.BlogWithAuthor, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalid("search query is required")
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	ids, err := s.index.Search(ctx, q, limit)
	if err != nil {
		return nil, external(err, "search failed")
	}
	blogs, err := s.blogs.FeedByIDs(ctx, ids)
	if err != nil {
		return nil, external(err, "failed to load blogs")
	}

	byID := make(map[string]models.BlogWithAuthor, len(blogs))
	for _, b := range blogs {
		byID[b.BlogID] = b
	}
	out := make([]models.BlogWithAuthor, 0, len(blogs))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// GetForEdit returns the editable fields of a blog.
func (s *BlogService) GetForEdit(ctx context.Context, blogID string) (*models.BlogSummary, error) {
	b, err := s.get(ctx, blogID)
	if err != nil {
		return nil, err
	}
	return &models.BlogSummary{BlogID: b.BlogID, Photo: b.Photo, Description: b.Description}, nil
}

// Update rewrites a blog owned by userID. The photo is replaced only when
// a new one is supplied.
func (s *BlogService) Update(ctx context.Context, userID, blogID, description string, photo *Upload) error {
	description = strings.TrimSpace(description)
	if err := validateDescription(description); err != nil {
		return err
	}
	if photo != nil {
		if _, err := imageContentType(photo.Filename); err != nil {
			return err
		}
	}

	b, err := s.get(ctx, blogID)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return ErrNotOwner
	}

	url, err := s.upload(ctx, photo)
	if err != nil {
		return err
	}
	ok, err := s.blogs.Update(ctx, blogID, userID, description, url)
	if err != nil {
		return external(err, "failed to update blog")
	}
	if !ok {
		return ErrBlogNotFound
	}

	s.logger.Info("Blog updated", util.String("blog_id", blogID))
	s.reindex(ctx, models.EventBlogUpdated, blogID, userID, description, b.CreatedAt)
	return nil
}

// React records a like or dislike. It reports false when the user already
// held that reaction.
func (s *BlogService) React(ctx context.Context, userID, blogID string, reaction models.Reaction) (bool, error) {
	applied, err := s.blogs.React(ctx, blogID, userID, reaction)
	if err != nil {
		if errors.Is(err, postgres.ErrBlogNotFound) {
			return false, ErrBlogNotFound
		}
		return false, external(err, "failed to record reaction")
	}
	if applied {
		s.publish(ctx, events.New(models.EventBlogReacted, blogID, userID,
			map[string]string{"reaction": string(reaction)}))
	}
	return applied, nil
}

// Comment appends an escaped comment by userID.
func (s *BlogService) Comment(ctx context.Context, userID, blogID, text string) (*models.Comment, error) {
	text = util.SanitizeInput(text)
	if text == "" {
		return nil, invalid("comment cannot be empty")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, external(err, "failed to load user")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	c := models.Comment{
		CommentID: uuid.NewString(),
		UserID:    userID,
		Username:  user.Username,
		UserPhoto: user.Image,
		Comment:   text,
		Timestamp: s.now().UTC(),
	}
	if err := s.blogs.AddComment(ctx, blogID, c); err != nil {
		if errors.Is(err, postgres.ErrBlogNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, external(err, "failed to add comment")
	}

	s.publish(ctx, events.New(models.EventBlogCommented, blogID, userID,
		map[string]string{"comment_id": c.CommentID}))
	return &c, nil
}

// Delete soft-deletes a blog and drops it from search.
func (s *BlogService) Delete(ctx context.Context, actor, blogID string) error {
	ok, err := s.blogs.SoftDelete(ctx, blogID)
	if err != nil {
		return external(err, "failed to delete blog")
	}
	if !ok {
		return ErrBlogNotFound
	}

	s.logger.Info("Blog deleted", util.String("blog_id", blogID), util.String("by", actor))
	if !s.indexViaEvents {
		s.unindex(ctx, blogID)
	}
	if !s.publish(ctx, events.New(models.EventBlogDeleted, blogID, actor, nil)) && s.indexViaEvents {
		s.unindex(ctx, blogID)
	}
	return nil
}

func (s *BlogService) get(ctx context.Context, blogID string) (*models.Blog, error) {
	b, err := s.blogs.GetByID(ctx, blogID)
	if err != nil {
		if errors.Is(err, postgres.ErrBlogNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, external(err, "failed to load blog")
	}
	return b, nil
}

func (s *BlogService) upload(ctx context.Context, photo *Upload) (string, error) {
	if photo == nil {
		return "", nil
	}
	ct, err := imageContentType(photo.Filename)
	if err != nil {
		return "", err
	}
	url, err := s.objects.Put(ctx, blogPhotoPrefix, photo.Filename, ct, photo.Body, photo.Size)
	if err != nil {
		return "", external(err, "failed to upload photo")
	}
	return url, nil
}

// reindex updates search directly, or leaves it to the event consumer.
// When the event cannot be published the index is written directly.
// Index failures are logged; Postgres stays authoritative.
func (s *BlogService) reindex(ctx context.Context, eventType, blogID, userID, description string, createdAt time.Time) {
	doc := search.BlogDocument{BlogID: blogID, UserID: userID, Description: description, CreatedAt: createdAt}
	if !s.indexViaEvents {
		s.indexDoc(ctx, doc)
	}
	published := s.publish(ctx, events.New(eventType, blogID, userID, map[string]string{
		"description": description,
		"created_at":  createdAt.Format(time.RFC3339Nano),
	}))
	if !published && s.indexViaEvents {
		s.indexDoc(ctx, doc)
	}
}

func (s *BlogService) indexDoc(ctx context.Context, doc search.BlogDocument) {
	if err := s.index.Index(ctx, doc); err != nil {
		s.logger.Warn("Failed to index blog", util.String("blog_id", doc.BlogID), util.ErrorField(err))
	}
}

func (s *BlogService) unindex(ctx context.Context, blogID string) {
	if err := s.index.Delete(ctx, blogID); err != nil {
		s.logger.Warn("Failed to remove blog from index", util.String("blog_id", blogID), util.ErrorField(err))
	}
}

// publish reports whether evt reached the broker.
func (s *BlogService) publish(ctx context.Context, evt models.DomainEvent) bool {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish event",
			util.String("type", evt.Type),
			util.String("key", evt.Key),
			util.ErrorField(err),
		)
		return false
	}
	return true
}
