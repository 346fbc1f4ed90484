package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"blog-service/internal/config"
	"blog-service/internal/util"
)

// DB is satisfied by *pgxpool.Pool and by pgxmock pools.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

const uniqueViolation = "23505"

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	util.Info("Postgres pool initialized",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns))
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id       TEXT PRIMARY KEY,
		username      TEXT NOT NULL,
		email         TEXT NOT NULL,
		image         TEXT,
		password      TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user',
		block_status  BOOLEAN NOT NULL DEFAULT FALSE,
		login_status  BOOLEAN NOT NULL DEFAULT FALSE,
		delete_status BOOLEAN NOT NULL DEFAULT FALSE,
		create_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		update_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT users_email_key UNIQUE (email),
		CONSTRAINT users_username_key UNIQUE (username)
	)`,
	`CREATE TABLE IF NOT EXISTS blogs (
		blog_id       TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL REFERENCES users (user_id),
		photo         TEXT,
		description   TEXT NOT NULL,
		likes         TEXT[] NOT NULL DEFAULT '{}',
		dislikes      TEXT[] NOT NULL DEFAULT '{}',
		comments      JSONB NOT NULL DEFAULT '[]'::jsonb,
		delete_status BOOLEAN NOT NULL DEFAULT FALSE,
		create_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		update_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS blogs_live_idx ON blogs (create_at DESC) WHERE delete_status = FALSE`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	util.Info("Postgres schema ready")
	return nil
}

// duplicateError maps a unique violation to the matching sentinel.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return ErrDuplicateUsername
	default:
		return ErrDuplicateEmail
	}
}
