package otp

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"blog-service/internal/apperrors"
	"blog-service/internal/models"
	"blog-service/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	util.Set(zap.NewNop())
	os.Exit(m.Run())
}

type memStore struct {
	mu      sync.Mutex
	records map[string]models.OTPVerification
	getErr  error
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]models.OTPVerification{}}
}

func (s *memStore) Get(_ context.Context, email string) (*models.OTPVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[email]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memStore) Upsert(_ context.Context, rec *models.OTPVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.records[rec.Email] = *rec
	return nil
}

func (s *memStore) MarkConsumed(_ context.Context, email, codeHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	if !ok || rec.Consumed || rec.CodeHash != codeHash {
		return false, nil
	}
	rec.Consumed = true
	s.records[email] = rec
	return true, nil
}

type sentMail struct{ to, subject, body string }

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{to, subject, body})
	return nil
}

type plainHasher struct{}

func (plainHasher) HashOTP(code string) (string, error) { return "h:" + code, nil }
func (plainHasher) VerifyOTP(code, encoded string) (bool, error) {
	return encoded == "h:"+code, nil
}

type fakeLimiter struct {
	mu       sync.Mutex
	failures map[string]int64
	locked   map[string]bool
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{failures: map[string]int64{}, locked: map[string]bool{}}
}

func (l *fakeLimiter) Locked(_ context.Context, email string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked[email], nil
}
func (l *fakeLimiter) RecordFailure(_ context.Context, email string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[email]++
	return l.failures[email], nil
}
func (l *fakeLimiter) Lock(_ context.Context, email string, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked[email] = true
	return nil
}
func (l *fakeLimiter) Reset(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, email)
	return nil
}

type sequence struct{ codes []string }

func (s *sequence) next() (string, error) {
	c := s.codes[0]
	s.codes = s.codes[1:]
	return c, nil
}

type harness struct {
	store    *memStore
	notifier *fakeNotifier
	limiter  *fakeLimiter
	now      time.Time
	registry *Registry
}

func newHarness(codes ...string) *harness {
	h := &harness{
		store:    newMemStore(),
		notifier: &fakeNotifier{},
		limiter:  newFakeLimiter(),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	seq := &sequence{codes: codes}
	h.registry = NewRegistry(h.store, h.notifier, plainHasher{},
		Config{Window: 2 * time.Minute, MaxAttempts: 3, LockDuration: 15 * time.Minute},
		WithLimiter(h.limiter),
		WithClock(func() time.Time { return h.now }),
		WithCodeGenerator(seq.next),
	)
	return h
}

func TestRequestCode(t *testing.T) {
	h := newHarness("123456")
	ctx := context.Background()

	require.NoError(t, h.registry.RequestCode(ctx, "jane@example.com"))

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, "jane@example.com", h.notifier.sent[0].to)
	assert.Contains(t, h.notifier.sent[0].body, "123456")
	assert.Contains(t, h.notifier.sent[0].body, "2 minutes")

	rec, err := h.store.Get(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "h:123456", rec.CodeHash)
	assert.False(t, rec.Consumed)
	assert.Equal(t, h.now, rec.CreatedAt)
}

func TestRequestCodeNotifierFailurePersistsNothing(t *testing.T) {
	h := newHarness("123456")
	h.notifier.err = errors.New("smtp down")
	ctx := context.Background()

	err := h.registry.RequestCode(ctx, "jane@example.com")
	assert.ErrorIs(t, err, apperrors.ErrExternal)

	rec, err := h.store.Get(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRequestCodeStoreFailure(t *testing.T) {
	h := newHarness("123456")
	h.store.putErr = errors.New("scylla down")

	err := h.registry.RequestCode(context.Background(), "jane@example.com")
	assert.ErrorIs(t, err, apperrors.ErrExternal)
}

func TestResendCode(t *testing.T) {
	ctx := context.Background()

	t.Run("no record", func(t *testing.T) {
		h := newHarness("123456")
		err := h.registry.ResendCode(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNoRecord)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Empty(t, h.notifier.sent)
	})

	t.Run("overwrites code and restarts window", func(t *testing.T) {
		h := newHarness("111111", "222222")
		require.NoError(t, h.registry.RequestCode(ctx, "jane@example.com"))

		h.now = h.now.Add(90 * time.Second)
		require.NoError(t, h.registry.ResendCode(ctx, "jane@example.com"))

		h.now = h.now.Add(90 * time.Second)
		assert.ErrorIs(t, h.registry.Verify(ctx, "jane@example.com", "111111"), ErrCodeMismatch)
		assert.NoError(t, h.registry.Verify(ctx, "jane@example.com", "222222"))
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		email   string
		code    string
		elapsed time.Duration
		wantErr error
	}{
		{name: "valid", email: "jane@example.com", code: "654321", elapsed: time.Minute},
		{name: "valid at window edge", email: "jane@example.com", code: "654321", elapsed: 2 * time.Minute},
		{name: "expired", email: "jane@example.com", code: "654321", elapsed: 2*time.Minute + time.Second, wantErr: ErrCodeExpired},
		{name: "wrong code", email: "jane@example.com", code: "654320", wantErr: ErrCodeMismatch},
		{name: "no record", email: "other@example.com", code: "654321", wantErr: ErrNoRecord},
		{name: "not six digits", email: "jane@example.com", code: "65432", wantErr: ErrMalformedCode},
		{name: "letters", email: "jane@example.com", code: "65432a", wantErr: ErrMalformedCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("654321")
			require.NoError(t, h.registry.RequestCode(ctx, "jane@example.com"))
			h.now = h.now.Add(tt.elapsed)

			err := h.registry.Verify(ctx, tt.email, tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			verified, err := h.registry.Verified(ctx, tt.email)
			require.NoError(t, err)
			assert.True(t, verified)
		})
	}
}

func TestVerifyReplayIsRejected(t *testing.T) {
	h := newHarness("654321")
	ctx := context.Background()
	require.NoError(t, h.registry.RequestCode(ctx, "jane@example.com"))

	require.NoError(t, h.registry.Verify(ctx, "jane@example.com", "654321"))
	assert.ErrorIs(t, h.registry.Verify(ctx, "jane@example.com", "654321"), ErrCodeConsumed)
}

func TestVerifyConcurrentConsumeAppliesOnce(t *testing.T) {
	h := newHarness("654321")
	ctx := context.Background()
	require.NoError(t, h.registry.RequestCode(ctx, "jane@example.com"))

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- h.registry.Verify(ctx, "jane@example.com", "654321")
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrCodeConsumed)
	}
	assert.Equal(t, 1, ok)
}

func TestVerifyLockout(t *testing.T) {
	h := newHarness("654321")
	ctx := context.Background()
	require.NoError(t, h.registry.RequestCode(ctx, "jane@example.com"))

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, h.registry.Verify(ctx, "jane@example.com", "00000"+strconv.Itoa(i)), ErrCodeMismatch)
	}
	assert.True(t, h.limiter.locked["jane@example.com"])

	err := h.registry.Verify(ctx, "jane@example.com", "654321")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestVerifySuccessResetsFailures(t *testing.T) {
	h := newHarness("654321")
	ctx := context.Background()
	require.NoError(t, h.registry.RequestCode(ctx, "jane@example.com"))

	assert.ErrorIs(t, h.registry.Verify(ctx, "jane@example.com", "000000"), ErrCodeMismatch)
	assert.Equal(t, int64(1), h.limiter.failures["jane@example.com"])

	require.NoError(t, h.registry.Verify(ctx, "jane@example.com", "654321"))
	assert.Zero(t, h.limiter.failures["jane@example.com"])
}

func TestVerifiedWithoutRecord(t *testing.T) {
	h := newHarness()
	verified, err := h.registry.Verified(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, codeMin)
		assert.LessOrEqual(t, n, codeMax)
	}
}

func TestFormatWindow(t *testing.T) {
	assert.Equal(t, "1 minute", formatWindow(time.Minute))
	assert.Equal(t, "2 minutes", formatWindow(2*time.Minute))
	assert.Equal(t, "1m30s", formatWindow(90*time.Second))
}
