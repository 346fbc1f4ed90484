// Package otp issues and checks the six-digit codes that prove ownership of
// an email address.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"blog-service/internal/apperrors"
	"blog-service/internal/models"
	"blog-service/internal/util"
)

var (
	ErrMalformedCode   = fmt.Errorf("%w: otp must be a 6 digit number", apperrors.ErrInvalidInput)
	ErrNoRecord        = fmt.Errorf("%w: no verification code was requested for this email", apperrors.ErrNotFound)
	ErrCodeMismatch    = fmt.Errorf("%w: invalid otp", apperrors.ErrInvalidInput)
	ErrCodeExpired     = fmt.Errorf("%w: otp has expired", apperrors.ErrInvalidInput)
	ErrCodeConsumed    = fmt.Errorf("%w: otp has already been used", apperrors.ErrInvalidInput)
	ErrTooManyAttempts = fmt.Errorf("%w: too many attempts, try again later", apperrors.ErrInvalidInput)
)

const (
	codeMin = 100000
	codeMax = 999999
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Store persists one record per email.
type Store interface {
	// Get returns nil, nil when no record exists.
	Get(ctx context.Context, email string) (*models.OTPVerification, error)
	// Upsert creates the record or overwrites code, timestamps and the
	// consumed flag.
	Upsert(ctx context.Context, rec *models.OTPVerification) error
	// MarkConsumed flips consumed to true only if the record is unconsumed
	// and still holds codeHash. It reports whether the update applied.
	MarkConsumed(ctx context.Context, email, codeHash string) (bool, error)
}

// Notifier delivers the code to the address owner.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type CodeHasher interface {
	HashOTP(code string) (string, error)
	VerifyOTP(code, encoded string) (bool, error)
}

// AttemptLimiter counts failed verifications per email.
type AttemptLimiter interface {
	Locked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) (int64, error)
	Lock(ctx context.Context, email string, d time.Duration) error
	Reset(ctx context.Context, email string) error
}

type Config struct {
	Window       time.Duration
	MaxAttempts  int
	LockDuration time.Duration
}

type Registry struct {
	store    Store
	notifier Notifier
	hasher   CodeHasher
	limiter  AttemptLimiter
	cfg      Config
	now      func() time.Time
	generate func() (string, error)
}

type Option func(*Registry)

// WithLimiter enables lockout after cfg.MaxAttempts failed verifications.
func WithLimiter(l AttemptLimiter) Option {
	return func(r *Registry) { r.limiter = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(r *Registry) { r.generate = gen }
}

func NewRegistry(store Store, notifier Notifier, hasher CodeHasher, cfg Config, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		notifier: notifier,
		hasher:   hasher,
		cfg:      cfg,
		now:      time.Now,
		generate: GenerateCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Window() time.Duration { return r.cfg.Window }

// RequestCode mails a fresh code and then stores it. Nothing is stored when
// delivery fails.
func (r *Registry) RequestCode(ctx context.Context, email string) error {
	code, err := r.generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	subject, body := r.message(code)
	if err := r.notifier.Send(ctx, email, subject, body); err != nil {
		util.Error("Failed to deliver otp",
			util.String("email", util.MaskEmail(email)),
			util.ErrorField(err),
		)
		return apperrors.Wrap(apperrors.ErrExternal, err, "failed to send verification email")
	}

	hash, err := r.hasher.HashOTP(code)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	now := r.now().UTC()
	rec := &models.OTPVerification{
		Email:     email,
		CodeHash:  hash,
		Consumed:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Upsert(ctx, rec); err != nil {
		return apperrors.Wrap(apperrors.ErrExternal, err, "failed to store otp")
	}

	util.Debug("OTP issued", util.String("email", util.MaskEmail(email)))
	return nil
}

// ResendCode replaces the code of an existing record and restarts its
// window.
func (r *Registry) ResendCode(ctx context.Context, email string) error {
	rec, err := r.store.Get(ctx, email)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrExternal, err, "failed to load otp")
	}
	if rec == nil {
		return ErrNoRecord
	}
	return r.RequestCode(ctx, email)
}

// Verify checks code against the stored record and consumes it on success.
func (r *Registry) Verify(ctx context.Context, email, code string) error {
	if !codePattern.MatchString(code) {
		return ErrMalformedCode
	}

	if r.limiter != nil {
		locked, err := r.limiter.Locked(ctx, email)
		if err != nil {
			util.Warn("OTP limiter unavailable", util.ErrorField(err))
		} else if locked {
			return ErrTooManyAttempts
		}
	}

	rec, err := r.store.Get(ctx, email)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrExternal, err, "failed to load otp")
	}
	if rec == nil {
		return ErrNoRecord
	}

	match, err := r.hasher.VerifyOTP(code, rec.CodeHash)
	if err != nil {
		util.Warn("Stored otp hash unreadable",
			util.String("email", util.MaskEmail(email)),
			util.ErrorField(err),
		)
		match = false
	}
	if !match {
		r.recordFailure(ctx, email)
		return ErrCodeMismatch
	}
	if rec.Consumed {
		return ErrCodeConsumed
	}
	if r.now().Sub(rec.CreatedAt) > r.cfg.Window {
		return ErrCodeExpired
	}

	applied, err := r.store.MarkConsumed(ctx, email, rec.CodeHash)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrExternal, err, "failed to consume otp")
	}
	if !applied {
		return ErrCodeConsumed
	}

	if r.limiter != nil {
		if err := r.limiter.Reset(ctx, email); err != nil {
			util.Warn("Failed to reset otp attempts", util.ErrorField(err))
		}
	}
	return nil
}

// Verified reports whether email holds a consumed code.
func (r *Registry) Verified(ctx context.Context, email string) (bool, error) {
	rec, err := r.store.Get(ctx, email)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrExternal, err, "failed to load otp")
	}
	return rec != nil && rec.Consumed, nil
}

func (r *Registry) recordFailure(ctx context.Context, email string) {
	if r.limiter == nil || r.cfg.MaxAttempts <= 0 {
		return
	}
	count, err := r.limiter.RecordFailure(ctx, email)
	if err != nil {
		util.Warn("Failed to record otp attempt", util.ErrorField(err))
		return
	}
	if count >= int64(r.cfg.MaxAttempts) {
		if err := r.limiter.Lock(ctx, email, r.cfg.LockDuration); err != nil {
			util.Warn("Failed to lock otp verification", util.ErrorField(err))
			return
		}
		util.Info("OTP verification locked",
			util.String("email", util.MaskEmail(email)),
			util.Duration("duration", r.cfg.LockDuration),
		)
	}
}

func (r *Registry) message(code string) (subject, body string) {
	subject = "Your verification code"
	body = fmt.Sprintf(
		"Your verification code is %s.\n\nThe code is valid for %s. If you did not request it, ignore this email.\n",
		code, formatWindow(r.cfg.Window),
	)
	return subject, body
}

func formatWindow(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}

// GenerateCode returns a uniformly random code in [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
