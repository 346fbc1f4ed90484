package service

import "blog-service/internal/apperrors"

var (
	ErrEmailRegistered    = apperrors.New(apperrors.ErrConflict, "email already registered")
	ErrUsernameTaken      = apperrors.New(apperrors.ErrConflict, "username already taken")
	ErrEmailNotVerified   = apperrors.New(apperrors.ErrInvalidInput, "email has not been verified")
	ErrPasswordMismatch   = apperrors.New(apperrors.ErrInvalidInput, "passwords do not match")
	ErrInvalidCredentials = apperrors.New(apperrors.ErrUnauthenticated, "invalid email or password")
	ErrUserBlocked        = apperrors.New(apperrors.ErrForbidden, "account is blocked")
	ErrUserNotFound       = apperrors.New(apperrors.ErrNotFound, "user not found")
	ErrBlogNotFound       = apperrors.New(apperrors.ErrNotFound, "blog not found")
	ErrNotOwner           = apperrors.New(apperrors.ErrForbidden, "you can only modify your own resources")
)

// invalid builds a validation failure with a client-facing message.
func invalid(msg string) error {
	return apperrors.New(apperrors.ErrInvalidInput, msg)
}

func external(err error, msg string) error {
	return apperrors.Wrap(apperrors.ErrExternal, err, msg)
}
