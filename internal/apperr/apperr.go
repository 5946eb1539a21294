// Package apperr carries the error kinds surfaced at the API boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status mapping
type Kind uint

const (
	KindInternal     Kind = iota // Unexpected failure
	KindValidation               // Malformed or missing input
	KindNotFound                 // Referenced entity absent
	KindUpstream                 // Market-data provider failure
	KindUnauthorized             // Missing or invalid admin credentials
	KindConflict                 // Uniqueness violation
)

// Error is an error with a kind and a user-facing message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the error kind onto an HTTP status code
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return newError(KindValidation, message, nil) }
func NotFound(message string) *Error { return newError(KindNotFound, message, nil) }
func Unauthorized(message string) *Error { return newError(KindUnauthorized, message, nil) }
func Conflict(message string, err error) *Error { return newError(KindConflict, message, err) }
func Upstream(message string, err error) *Error { return newError(KindUpstream, message, err) }
func Internal(message string, err error) *Error { return newError(KindInternal, message, err) }

// KindOf returns the kind of err, KindInternal when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
