// Package errs defines the error kinds shared by the domain services.
//
// Every domain error unwraps to exactly one kind, so transports can map
// failures to status codes with errors.Is without knowing the concrete
// sentinel.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")

	// ErrUnauthorized covers failed credential checks.
	ErrUnauthorized = errors.New("unauthorized")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() error {
	return e.kind
}

func Validation(msg string) error {
	return &kindError{kind: ErrValidation, msg: msg}
}

func Validationf(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) error {
	return &kindError{kind: ErrNotFound, msg: msg}
}

func Forbidden(msg string) error {
	return &kindError{kind: ErrForbidden, msg: msg}
}

func Conflict(msg string) error {
	return &kindError{kind: ErrConflict, msg: msg}
}

func Unauthorized(msg string) error {
	return &kindError{kind: ErrUnauthorized, msg: msg}
}

// Kind returns the kind sentinel err unwraps to, or nil for infrastructure
// errors.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrForbidden, ErrConflict, ErrUnauthorized} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
