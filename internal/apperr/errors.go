// Package apperr defines the error kinds surfaced to API callers and the
// translation of lower-level failures into them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category.
type Kind string

const (
	KindBadUserInput    Kind = "BAD_USER_INPUT"
	KindBadRequest      Kind = "BAD_REQUEST"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindInternal        Kind = "INTERNAL_SERVER_ERROR"
)

// HTTPStatus maps a kind to the status code used by the HTTP layer.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadUserInput, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Error is an error that is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func BadUserInput(format string, args ...any) *Error { return newf(KindBadUserInput, format, args...) }
func BadRequest(format string, args ...any) *Error   { return newf(KindBadRequest, format, args...) }
func Forbidden(format string, args ...any) *Error    { return newf(KindForbidden, format, args...) }
func NotFound(format string, args ...any) *Error     { return newf(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error     { return newf(KindConflict, format, args...) }

// Unauthenticated is returned when an operation requires an identity.
func Unauthenticated() *Error {
	return newf(KindUnauthenticated, "you must be logged in")
}

// Internal wraps err behind the generic public message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: internalMessage, Err: err}
}

const internalMessage = "something went wrong, please try again later"

// KindOf returns the kind of err, or KindInternal for unrecognised errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
