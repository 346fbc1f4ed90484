package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"blog-service/internal/config"
	"blog-service/internal/util"
)

// Statements holds the CQL used by the repositories. gocql prepares and
// caches each statement on first use.
var Statements = struct {
	CreateOTPTable    string
	RefreshOTP        string
	InsertOTP         string
	GetOTP            string
	ConsumeOTP        string
	HealthCheck       string
	CreateKeyspaceFmt string
}{
	CreateOTPTable: `
        CREATE TABLE IF NOT EXISTS otp_verifications (
            email_bucket int,
            email text,
            code_hash text,
            consumed boolean,
            created_at timestamp,
            updated_at timestamp,
            PRIMARY KEY ((email_bucket, email))
        )`,
	RefreshOTP: `
        UPDATE otp_verifications SET code_hash = ?, consumed = false, created_at = ?, updated_at = ?
        WHERE email_bucket = ? AND email = ?
        IF EXISTS`,
	InsertOTP: `
        INSERT INTO otp_verifications (email_bucket, email, code_hash, consumed, created_at, updated_at)
        VALUES (?, ?, ?, false, ?, ?)
        IF NOT EXISTS`,
	GetOTP: `
        SELECT email_bucket, email, code_hash, consumed, created_at, updated_at
        FROM otp_verifications WHERE email_bucket = ? AND email = ?`,
	ConsumeOTP: `
        UPDATE otp_verifications SET consumed = true, updated_at = ?
        WHERE email_bucket = ? AND email = ?
        IF consumed = false AND code_hash = ?`,
	HealthCheck:       `SELECT cluster_name FROM system.local`,
	CreateKeyspaceFmt: `CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}`,
}

type ScyllaClient struct {
	Session *gocql.Session
	config  config.ScyllaConfig
}

func newCluster(cfg config.ScyllaConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Nodes...)
	cluster.Consistency = gocql.LocalQuorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.MaxRoutingKeyInfo = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if cfg.CAPath != "" {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 cfg.CAPath,
			CertPath:               cfg.CertPath,
			KeyPath:                cfg.KeyPath,
			EnableHostVerification: true,
		}
	}

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	return cluster
}

// NewScyllaClient creates the keyspace if needed and opens a session bound
// to it.
func NewScyllaClient(cfg config.ScyllaConfig) (*ScyllaClient, error) {
	if err := ensureKeyspace(cfg); err != nil {
		return nil, err
	}

	cluster := newCluster(cfg)
	cluster.Keyspace = cfg.Keyspace

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  cfg,
	}

	util.Info("ScyllaDB client initialized",
		zap.Strings("nodes", cfg.Nodes),
		zap.String("keyspace", cfg.Keyspace))

	return client, nil
}

func ensureKeyspace(cfg config.ScyllaConfig) error {
	session, err := newCluster(cfg).CreateSession()
	if err != nil {
		return fmt.Errorf("failed to create scylla bootstrap session: %w", err)
	}
	defer session.Close()

	replication := cfg.Replication
	if replication <= 0 {
		replication = 1
	}
	stmt := fmt.Sprintf(Statements.CreateKeyspaceFmt, cfg.Keyspace, replication)
	if err := session.Query(stmt).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace %s: %w", cfg.Keyspace, err)
	}
	return nil
}

// Migrate creates the tables used by the repositories.
func (s *ScyllaClient) Migrate(ctx context.Context) error {
	if err := s.Session.Query(Statements.CreateOTPTable).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create otp_verifications: %w", err)
	}
	util.Info("ScyllaDB schema ready", zap.String("keyspace", s.config.Keyspace))
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(ctx context.Context, stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...).WithContext(ctx)
}

// Scan reads one row into dest, retrying transient failures.
func (s *ScyllaClient) Scan(ctx context.Context, stmt string, values []interface{}, dest ...interface{}) error {
	return s.ScanWithRetry(ctx, s.Query(ctx, stmt, values...), dest...)
}

// CAS runs a lightweight transaction and reports whether it applied.
func (s *ScyllaClient) CAS(ctx context.Context, stmt string, values ...interface{}) (bool, error) {
	return s.Query(ctx, stmt, values...).MapScanCAS(map[string]interface{}{})
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(Statements.HealthCheck).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

// ScanWithRetry retries query with a linear backoff until it succeeds,
// finds no row, or ctx ends.
func (s *ScyllaClient) ScanWithRetry(ctx context.Context, query *gocql.Query, dest ...interface{}) error {
	return retry(ctx, 2, func() error {
		return query.Scan(dest...)
	})
}

func retry(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		lastErr = fn()
		if lastErr == nil || errors.Is(lastErr, gocql.ErrNotFound) || i == maxRetries {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
		}
	}
	return lastErr
}
