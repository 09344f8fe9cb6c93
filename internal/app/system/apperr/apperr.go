// Package apperr defines the error kinds the HTTP layer knows how to map.
//
// Stores and services wrap one of these kinds into their own sentinels so
// callers can match either the specific error or the kind:
//
//	var ErrNotFound = fmt.Errorf("expense %w", apperr.ErrNotFound)
package apperr

import "errors"

var (
	// ErrNotFound means the addressed document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller lacks the role or relationship required.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalid means the request failed validation.
	ErrInvalid = errors.New("invalid input")
	// ErrConflict means the document is not in a state that allows the change.
	ErrConflict = errors.New("conflict")
)

// Invalid returns a validation error carrying msg.
func Invalid(msg string) error {
	return &fieldError{msg: msg}
}

type fieldError struct{ msg string }

func (e *fieldError) Error() string { return e.msg }
func (e *fieldError) Unwrap() error { return ErrInvalid }
