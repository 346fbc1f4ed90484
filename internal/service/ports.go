package service

import (
	"context"
	"io"

	"blog-service/internal/models"
	"blog-service/internal/search"
	"blog-service/internal/token"
)

// UserStore is satisfied by *postgres.UserRepository.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
	SetLoginStatus(ctx context.Context, userID string, loggedIn bool) (bool, error)
	SetBlockStatus(ctx context.Context, userID string, blocked bool) (bool, error)
	UpdateProfile(ctx context.Context, userID, username, email, image string) (bool, error)
}

// BlogStore is satisfied by *postgres.BlogRepository.
type BlogStore interface {
	Create(ctx context.Context, b *models.Blog) error
	GetByID(ctx context.Context, blogID string) (*models.Blog, error)
	Summaries(ctx context.Context) ([]models.BlogSummary, error)
	Feed(ctx context.Context) ([]models.BlogWithAuthor, error)
	FeedByIDs(ctx context.Context, ids []string) ([]models.BlogWithAuthor, error)
	Update(ctx context.Context, blogID, ownerID, description, photo string) (bool, error)
	React(ctx context.Context, blogID, userID string, reaction models.Reaction) (bool, error)
	AddComment(ctx context.Context, blogID string, c models.Comment) error
	SoftDelete(ctx context.Context, blogID string) (bool, error)
}

// OTPRegistry is satisfied by *otp.Registry.
type OTPRegistry interface {
	RequestCode(ctx context.Context, email string) error
	ResendCode(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
	Verified(ctx context.Context, email string) (bool, error)
}

// Credentials is satisfied by *hashing.PasswordHasher.
type Credentials interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenIssuer is satisfied by *token.Service.
type TokenIssuer interface {
	IssueAccess(payload token.Payload) (string, error)
	IssuePair(payload token.Payload) (access, refresh string, err error)
}

// ObjectStore is satisfied by *client.S3Client.
type ObjectStore interface {
	Put(ctx context.Context, prefix, filename, contentType string, body io.Reader, size int64) (string, error)
}

// SearchIndex is satisfied by *search.BlogIndex and search.Nop.
type SearchIndex interface {
	Index(ctx context.Context, doc search.BlogDocument) error
	Delete(ctx context.Context, blogID string) error
	Search(ctx context.Context, q string, limit int) ([]string, error)
}

// Upload is an image received from a client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// RequestMeta describes the caller for the audit trail.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
