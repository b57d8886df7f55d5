// Package clinicerr holds the error kinds shared by the scheduling core.
// Domain packages wrap one of these sentinels so callers can classify
// failures with errors.Is without knowing the specific error.
package clinicerr

import "errors"

var (
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate")
	ErrInvalidRange = errors.New("invalid range")
	ErrValidation   = errors.New("validation error")
)

// Validation wraps a message as a validation error.
func Validation(msg string) error {
	return &kindError{kind: ErrValidation, msg: msg}
}

// InvalidRange wraps a message as an invalid range error.
func InvalidRange(msg string) error {
	return &kindError{kind: ErrInvalidRange, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.msg
}

func (e *kindError) Unwrap() error {
	return e.kind
}

// Code returns a stable snake_case code for the kind of err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	default:
		return "internal_error"
	}
}
