package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"blog-service/internal/models"
)

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `user_id, username, email, COALESCE(image, ''), password, role,
	block_status, login_status, delete_status, create_at, update_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.UserID, &u.Username, &u.Email, &u.Image, &u.PasswordHash, &u.Role,
		&u.BlockStatus, &u.LoginStatus, &u.DeleteStatus, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (user_id, username, email, image, password, role, create_at, update_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)`,
		u.UserID, u.Username, u.Email, u.Image, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail returns nil, nil when no user has email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// GetByID returns nil, nil when the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, nil
}

// EmailTaken reports whether another user than exceptID owns email.
func (r *UserRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND user_id <> $2)`, email, exceptID)
}

// UsernameTaken reports whether another user than exceptID owns username.
func (r *UserRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND user_id <> $2)`, username, exceptID)
}

func (r *UserRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check uniqueness: %w", err)
	}
	return ok, nil
}

// SetLoginStatus reports false when the user does not exist.
func (r *UserRepository) SetLoginStatus(ctx context.Context, userID string, loggedIn bool) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET login_status = $2, update_at = now() WHERE user_id = $1`, userID, loggedIn)
	if err != nil {
		return false, fmt.Errorf("failed to update login status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetBlockStatus reports false when the user does not exist.
func (r *UserRepository) SetBlockStatus(ctx context.Context, userID string, blocked bool) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET block_status = $2, update_at = now() WHERE user_id = $1 AND delete_status = FALSE`, userID, blocked)
	if err != nil {
		return false, fmt.Errorf("failed to update block status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateProfile sets username and email, and image when it is not empty.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID, username, email, image string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET username = $2, email = $3, image = COALESCE(NULLIF($4, ''), image), update_at = now()
		WHERE user_id = $1 AND delete_status = FALSE`,
		userID, username, email, image)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return false, dup
		}
		return false, fmt.Errorf("failed to update profile: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
