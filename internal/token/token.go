// Package token issues and validates the HMAC-signed bearer tokens used for
// user and admin sessions.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every validation failure: bad signature, malformed
// input, unexpected algorithm and expiry.
var ErrInvalidToken = errors.New("invalid or expired token")

// Payload keys carried inside the "user" claim.
const (
	KeyEmail    = "email"
	KeyUserID   = "user_id"
	KeyUsername = "username"
	KeyRole     = "role"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// exp and iat keep millisecond precision so a token lives its full ttl.
func init() {
	jwt.TimePrecision = time.Millisecond
}

// Payload is the identity map embedded in a token.
type Payload map[string]any

func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p Payload) Role() string   { return p.String(KeyRole) }
func (p Payload) UserID() string { return p.String(KeyUserID) }
func (p Payload) Email() string  { return p.String(KeyEmail) }

// Claims is the signed token body. The jti is RegisteredClaims.ID.
type Claims struct {
	User    Payload `json:"user"`
	Refresh bool    `json:"refresh"`
	jwt.RegisteredClaims
}

// Service signs and validates tokens with one shared secret.
type Service struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(secret string, accessExpiry, refreshExpiry time.Duration, opts ...Option) *Service {
	s := &Service{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) AccessExpiry() time.Duration  { return s.accessExpiry }
func (s *Service) RefreshExpiry() time.Duration { return s.refreshExpiry }

// Issue signs payload with a fresh jti, expiring ttl from now.
func (s *Service) Issue(payload Payload, refresh bool, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	now := s.now()
	claims := Claims{
		User:    payload,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueAccess issues a non-refresh token with the configured access expiry.
func (s *Service) IssueAccess(payload Payload) (string, error) {
	return s.Issue(payload, false, s.accessExpiry)
}

// IssueRefresh issues a refresh token with the configured refresh expiry.
func (s *Service) IssueRefresh(payload Payload) (string, error) {
	return s.Issue(payload, true, s.refreshExpiry)
}

// IssuePair returns an access and a refresh token for payload.
func (s *Service) IssuePair(payload Payload) (access, refresh string, err error) {
	if access, err = s.IssueAccess(payload); err != nil {
		return "", "", err
	}
	if refresh, err = s.IssueRefresh(payload); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Validate checks signature and expiry only. The refresh flag is left to
// the caller.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.User == nil {
		claims.User = Payload{}
	}
	return claims, nil
}
