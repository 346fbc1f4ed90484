// Package guard admits or refuses bearer credentials. A Guard validates the
// token and then runs a fixed list of checks over its claims.
package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blog-service/internal/apperrors"
	"blog-service/internal/token"
)

var (
	ErrMissingToken   = fmt.Errorf("%w: missing bearer token", apperrors.ErrUnauthenticated)
	ErrInvalidToken   = fmt.Errorf("%w: invalid or expired token", apperrors.ErrUnauthenticated)
	ErrWrongTokenKind = fmt.Errorf("%w: wrong token kind", apperrors.ErrForbidden)
	ErrRoleMismatch   = fmt.Errorf("%w: insufficient role", apperrors.ErrForbidden)
)

// Validator is satisfied by *token.Service.
type Validator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// Check inspects validated claims. A non-nil error refuses the request.
type Check func(*token.Claims) error

// RequireAccess admits only access tokens.
func RequireAccess() Check {
	return func(c *token.Claims) error {
		if c.Refresh {
			return fmt.Errorf("%w: provide a valid access token", ErrWrongTokenKind)
		}
		return nil
	}
}

// RequireRefresh admits only refresh tokens.
func RequireRefresh() Check {
	return func(c *token.Claims) error {
		if !c.Refresh {
			return fmt.Errorf("%w: provide a valid refresh token", ErrWrongTokenKind)
		}
		return nil
	}
}

// RequireRole admits tokens whose payload role equals role.
func RequireRole(role string) Check {
	return func(c *token.Claims) error {
		if c.User.Role() != role {
			return ErrRoleMismatch
		}
		return nil
	}
}

type Guard struct {
	name      string
	validator Validator
	checks    []Check
}

func New(name string, v Validator, checks ...Check) *Guard {
	return &Guard{name: name, validator: v, checks: checks}
}

func (g *Guard) Name() string { return g.name }

// Admit validates the Authorization header value and runs every check in
// order, stopping at the first refusal.
func (g *Guard) Admit(authorization string) (*token.Claims, error) {
	raw := ExtractBearer(authorization)
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims, err := g.validator.Validate(raw)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	for _, check := range g.checks {
		if err := check(claims); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

// Set holds the four guards the router mounts.
type Set struct {
	UserAccess   *Guard
	UserRefresh  *Guard
	AdminAccess  *Guard
	AdminRefresh *Guard
}

func NewSet(v Validator) *Set {
	return &Set{
		UserAccess:   New("user-access", v, RequireAccess(), RequireRole(token.RoleUser)),
		UserRefresh:  New("user-refresh", v, RequireRefresh(), RequireRole(token.RoleUser)),
		AdminAccess:  New("admin-access", v, RequireAccess(), RequireRole(token.RoleAdmin)),
		AdminRefresh: New("admin-refresh", v, RequireRefresh(), RequireRole(token.RoleAdmin)),
	}
}

// ExtractBearer returns the credential from a "Bearer <token>" header, or
// "" when the scheme is absent or different.
func ExtractBearer(h string) string {
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

type ctxKey string

const claimsKey ctxKey = "guard_claims"

func WithClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the claims admitted for this request.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*token.Claims)
	return c, ok && c != nil
}
