// Package apperrors defines the failure kinds every domain error wraps.
// The HTTP layer maps each kind to a single status code.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("authentication failed")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrExternal        = errors.New("external dependency failure")
)

// New returns an error of the given kind carrying msg.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Wrap attaches kind to err. A nil err yields nil.
func Wrap(kind error, err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, err)
}

// Message returns the client-facing text of err: the message given to New,
// or err.Error() otherwise.
func Message(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return err.Error()
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }
