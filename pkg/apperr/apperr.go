// Package apperr defines the error taxonomy shared by the order service layers.
//
// Every failure is an *Error carrying a Kind. Each kind has a sentinel so callers can
// classify with errors.Is without depending on the concrete type:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
//
// Transport layers translate kinds to status codes with HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

var (
	ErrUnexpected      = errors.New("unexpected error")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

var sentinels = map[Kind]error{
	KindUnexpected:      ErrUnexpected,
	KindValidation:      ErrValidation,
	KindUnauthenticated: ErrUnauthenticated,
	KindForbidden:       ErrForbidden,
	KindNotFound:        ErrNotFound,
	KindConflict:        ErrConflict,
}

var codes = map[Kind]string{
	KindUnexpected:      "internal_error",
	KindValidation:      "validation_error",
	KindUnauthenticated: "unauthenticated",
	KindForbidden:       "forbidden",
	KindNotFound:        "not_found",
	KindConflict:        "conflict",
}

// Error is the concrete error type produced by the service.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (cause: %s)", e.Message, sanitize(e.Cause.Error()))
	}
	return e.Message
}

// Unwrap returns the kind sentinel and, when present, the cause.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{sentinels[e.Kind], e.Cause}
	}
	return []error{sentinels[e.Kind]}
}

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: sanitize(fmt.Sprintf(format, args...)), Cause: cause}
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, nil, format, args...)
}

func ValidationWithCause(cause error, format string, args ...any) *Error {
	return newError(KindValidation, cause, format, args...)
}

func Unauthenticated(format string, args ...any) *Error {
	return newError(KindUnauthenticated, nil, format, args...)
}

func UnauthenticatedWithCause(cause error, format string, args ...any) *Error {
	return newError(KindUnauthenticated, cause, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, nil, format, args...)
}

// NotFound reports a missing resource, e.g. NotFound("order", id).
func NotFound(resource, id string) *Error {
	return newError(KindNotFound, nil, "%s not found: %s", resource, id)
}

func Conflict(cause error, format string, args ...any) *Error {
	return newError(KindConflict, cause, format, args...)
}

// Wrap marks err as unexpected unless it already carries a kind.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return newError(KindUnexpected, err, format, args...)
}

// KindOf classifies err; errors outside the taxonomy are unexpected.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnexpected
}

// Code returns the machine readable error code for err.
func Code(err error) string {
	return codes[KindOf(err)]
}

// Message returns the human readable message without the cause chain.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// HTTPStatus maps err to a response status. Conflicts have no dedicated retry path and
// surface as a generic failure.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func sanitize(value string) string {
	return strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(value))
}
