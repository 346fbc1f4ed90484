package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blog-service/internal/util"
)

const (
	otpAttemptPrefix = "otp_attempts:"
	otpLockPrefix    = "otp_lock:"
)

// OTPAttemptCache counts failed OTP verifications per email and holds the
// lock set once the limit is reached.
type OTPAttemptCache struct {
	client KV
	window time.Duration
}

// NewOTPAttemptCache counts failures within window; the counter expires
// window after the last failure.
func NewOTPAttemptCache(client KV, window time.Duration) *OTPAttemptCache {
	return &OTPAttemptCache{client: client, window: window}
}

func (c *OTPAttemptCache) Locked(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	locked, err := c.client.Exists(ctx, otpLockPrefix+email)
	if err != nil {
		util.Error("Failed to check OTP lock",
			zap.String("email", util.MaskEmail(email)),
			zap.Error(err))
		return false, fmt.Errorf("failed to check OTP lock: %w", err)
	}
	return locked, nil
}

func (c *OTPAttemptCache) RecordFailure(ctx context.Context, email string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := c.client.IncrWithExpire(ctx, otpAttemptPrefix+email, c.window)
	if err != nil {
		util.Error("Failed to increment OTP attempts",
			zap.String("email", util.MaskEmail(email)),
			zap.Error(err))
		return 0, fmt.Errorf("failed to increment OTP attempts: %w", err)
	}

	util.Debug("OTP attempts incremented",
		zap.String("email", util.MaskEmail(email)),
		zap.Int64("count", count))
	return count, nil
}

func (c *OTPAttemptCache) Lock(ctx context.Context, email string, d time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, otpLockPrefix+email, "locked", d); err != nil {
		util.Error("Failed to set OTP lock",
			zap.String("email", util.MaskEmail(email)),
			zap.Duration("ttl", d),
			zap.Error(err))
		return fmt.Errorf("failed to set OTP lock: %w", err)
	}
	return c.client.Del(ctx, otpAttemptPrefix+email)
}

func (c *OTPAttemptCache) Reset(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, otpAttemptPrefix+email, otpLockPrefix+email); err != nil {
		return fmt.Errorf("failed to reset OTP attempts: %w", err)
	}
	return nil
}
