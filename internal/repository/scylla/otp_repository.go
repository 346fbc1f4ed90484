package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"blog-service/internal/models"
	"blog-service/internal/util"
)

// Bucketer assigns an email to its partition bucket.
type Bucketer interface {
	EmailBucket(email string) int
}

// CQL is the part of *ScyllaClient the OTP repository runs statements on.
type CQL interface {
	Scan(ctx context.Context, stmt string, values []interface{}, dest ...interface{}) error
	CAS(ctx context.Context, stmt string, values ...interface{}) (bool, error)
}

// OTPRepository stores one verification record per email, partitioned by
// (email_bucket, email). Every write to a row is a lightweight transaction,
// so a fresh code is never shadowed by an earlier consume.
type OTPRepository struct {
	client  CQL
	buckets Bucketer
	timeout time.Duration
	nowFunc func() time.Time
}

func NewOTPRepository(client CQL, buckets Bucketer) *OTPRepository {
	return &OTPRepository{
		client:  client,
		buckets: buckets,
		timeout: 5 * time.Second,
		nowFunc: time.Now,
	}
}

func (r *OTPRepository) Get(ctx context.Context, email string) (*models.OTPVerification, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec := &models.OTPVerification{}
	err := r.client.Scan(ctx, Statements.GetOTP, []interface{}{r.buckets.EmailBucket(email), email},
		&rec.EmailBucket, &rec.Email, &rec.CodeHash, &rec.Consumed, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, nil
		}
		util.Error("Failed to get OTP",
			zap.String("email", util.MaskEmail(email)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}
	return rec, nil
}

// Upsert overwrites an existing row, or inserts one when absent. A
// concurrent insert that wins the race is overwritten on the second pass.
func (r *OTPRepository) Upsert(ctx context.Context, rec *models.OTPVerification) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec.EmailBucket = r.buckets.EmailBucket(rec.Email)
	rec.Consumed = false

	for attempt := 0; attempt < 2; attempt++ {
		applied, err := r.client.CAS(ctx, Statements.RefreshOTP,
			rec.CodeHash, rec.CreatedAt, rec.UpdatedAt, rec.EmailBucket, rec.Email)
		if err == nil && !applied {
			applied, err = r.client.CAS(ctx, Statements.InsertOTP,
				rec.EmailBucket, rec.Email, rec.CodeHash, rec.CreatedAt, rec.UpdatedAt)
		}
		if err != nil {
			util.Error("Failed to upsert OTP",
				zap.String("email", util.MaskEmail(rec.Email)),
				zap.Int("email_bucket", rec.EmailBucket),
				zap.Error(err))
			return fmt.Errorf("failed to upsert OTP: %w", err)
		}
		if applied {
			util.Debug("OTP stored",
				zap.String("email", util.MaskEmail(rec.Email)),
				zap.Int("email_bucket", rec.EmailBucket))
			return nil
		}
	}
	return fmt.Errorf("failed to upsert OTP: row for %s kept changing", util.MaskEmail(rec.Email))
}

// MarkConsumed applies only while the row is unconsumed and still holds
// codeHash.
func (r *OTPRepository) MarkConsumed(ctx context.Context, email, codeHash string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	applied, err := r.client.CAS(ctx, Statements.ConsumeOTP,
		r.nowFunc().UTC(), r.buckets.EmailBucket(email), email, codeHash)
	if err != nil {
		util.Error("Failed to consume OTP",
			zap.String("email", util.MaskEmail(email)),
			zap.Error(err))
		return false, fmt.Errorf("failed to consume OTP: %w", err)
	}

	if !applied {
		util.Debug("OTP consume not applied", zap.String("email", util.MaskEmail(email)))
	}
	return applied, nil
}
