package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"blog-service/internal/models"
)

// ErrBlogNotFound is returned when a blog is missing or soft-deleted.
var ErrBlogNotFound = errors.New("blog not found")

type BlogRepository struct {
	db DB
}

func NewBlogRepository(db DB) *BlogRepository {
	return &BlogRepository{db: db}
}

func (r *BlogRepository) Create(ctx context.Context, b *models.Blog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO blogs (blog_id, user_id, photo, description, create_at, update_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)`,
		b.BlogID, b.UserID, b.Photo, b.Description, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create blog: %w", err)
	}
	return nil
}

// GetByID returns ErrBlogNotFound for missing or deleted blogs.
func (r *BlogRepository) GetByID(ctx context.Context, blogID string) (*models.Blog, error) {
	var b models.Blog
	err := r.db.QueryRow(ctx, `
		SELECT blog_id, user_id, COALESCE(photo, ''), description, likes, dislikes, comments, create_at, update_at
		FROM blogs WHERE blog_id = $1 AND delete_status = FALSE`, blogID).
		Scan(&b.BlogID, &b.UserID, &b.Photo, &b.Description, &b.Likes, &b.Dislikes, &b.Comments, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlogNotFound
		}
		return nil, fmt.Errorf("failed to get blog: %w", err)
	}
	return &b, nil
}

func (r *BlogRepository) Summaries(ctx context.Context) ([]models.BlogSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT blog_id, COALESCE(photo, ''), description
		FROM blogs WHERE delete_status = FALSE
		ORDER BY create_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blogs: %w", err)
	}
	defer rows.Close()

	out := []models.BlogSummary{}
	for rows.Next() {
		var s models.BlogSummary
		if err := rows.Scan(&s.BlogID, &s.Photo, &s.Description); err != nil {
			return nil, fmt.Errorf("failed to scan blog: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list blogs: %w", err)
	}
	return out, nil
}

const feedQuery = `
	SELECT b.blog_id, COALESCE(b.photo, ''), b.description, b.user_id, u.username, COALESCE(u.image, ''),
		b.likes, b.dislikes, b.comments, b.create_at
	FROM blogs b
	JOIN users u ON u.user_id = b.user_id
	WHERE b.delete_status = FALSE AND u.delete_status = FALSE`

// Feed lists live blogs with their authors, newest first.
func (r *BlogRepository) Feed(ctx context.Context) ([]models.BlogWithAuthor, error) {
	return r.queryFeed(ctx, feedQuery+` ORDER BY b.create_at DESC`)
}

// FeedByIDs returns the live blogs among ids, in no particular order.
func (r *BlogRepository) FeedByIDs(ctx context.Context, ids []string) ([]models.BlogWithAuthor, error) {
	if len(ids) == 0 {
		return []models.BlogWithAuthor{}, nil
	}
	return r.queryFeed(ctx, feedQuery+` AND b.blog_id = ANY($1)`, ids)
}

func (r *BlogRepository) queryFeed(ctx context.Context, query string, args ...any) ([]models.BlogWithAuthor, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blogs: %w", err)
	}
	defer rows.Close()

	out := []models.BlogWithAuthor{}
	for rows.Next() {
		var b models.BlogWithAuthor
		if err := rows.Scan(&b.BlogID, &b.Photo, &b.Description, &b.UserID, &b.Username, &b.UserImage,
			&b.Likes, &b.Dislikes, &b.Comments, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan blog: %w", err)
		}
		if b.Likes == nil {
			b.Likes = []string{}
		}
		if b.Dislikes == nil {
			b.Dislikes = []string{}
		}
		if b.Comments == nil {
			b.Comments = []models.Comment{}
		}
		b.LikeCount = len(b.Likes)
		b.DislikeCount = len(b.Dislikes)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list blogs: %w", err)
	}
	return out, nil
}

// Update rewrites description, and photo when it is not empty. Only the
// owner's live blog is touched; it reports whether a row changed.
func (r *BlogRepository) Update(ctx context.Context, blogID, ownerID, description, photo string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE blogs
		SET description = $3, photo = COALESCE(NULLIF($4, ''), photo), update_at = now()
		WHERE blog_id = $1 AND user_id = $2 AND delete_status = FALSE`,
		blogID, ownerID, description, photo)
	if err != nil {
		return false, fmt.Errorf("failed to update blog: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// React adds userID to the reaction set and removes it from the opposite
// one in a single statement. It reports false when userID already holds
// the reaction, and ErrBlogNotFound when the blog is missing.
func (r *BlogRepository) React(ctx context.Context, blogID, userID string, reaction models.Reaction) (bool, error) {
	var query string
	switch reaction {
	case models.ReactionLike:
		query = `
			UPDATE blogs
			SET likes = array_append(likes, $2), dislikes = array_remove(dislikes, $2), update_at = now()
			WHERE blog_id = $1 AND delete_status = FALSE AND NOT ($2 = ANY(likes))`
	case models.ReactionDislike:
		query = `
			UPDATE blogs
			SET dislikes = array_append(dislikes, $2), likes = array_remove(likes, $2), update_at = now()
			WHERE blog_id = $1 AND delete_status = FALSE AND NOT ($2 = ANY(dislikes))`
	default:
		return false, fmt.Errorf("unknown reaction %q", reaction)
	}

	tag, err := r.db.Exec(ctx, query, blogID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to record %s: %w", reaction, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	live, err := r.live(ctx, blogID)
	if err != nil {
		return false, err
	}
	if !live {
		return false, ErrBlogNotFound
	}
	return false, nil
}

// AddComment appends c to the blog's comment list.
func (r *BlogRepository) AddComment(ctx context.Context, blogID string, c models.Comment) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode comment: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE blogs
		SET comments = comments || jsonb_build_array($2::jsonb), update_at = now()
		WHERE blog_id = $1 AND delete_status = FALSE`,
		blogID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlogNotFound
	}
	return nil
}

// SoftDelete flags the blog deleted; it reports false when it was already
// gone.
func (r *BlogRepository) SoftDelete(ctx context.Context, blogID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE blogs SET delete_status = TRUE, update_at = now() WHERE blog_id = $1 AND delete_status = FALSE`, blogID)
	if err != nil {
		return false, fmt.Errorf("failed to delete blog: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BlogRepository) live(ctx context.Context, blogID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blogs WHERE blog_id = $1 AND delete_status = FALSE)`, blogID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to look up blog: %w", err)
	}
	return ok, nil
}
