package errs

import (
	"errors"
	"net/http"
)

// Error is a typed service failure. Kind is one of the package sentinels and
// decides the status hint; Message is safe to show to clients.
type Error struct {
	Kind    error
	Message string
	Details []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the sentinel kind so errors.Is works against it.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// Status returns the HTTP status hint for the error kind.
func (e *Error) Status() int { return statusOfKind(e.Kind) }

// Validation builds an input error with itemized details.
func Validation(msg string, details ...string) *Error {
	return &Error{Kind: ErrValidation, Message: msg, Details: details}
}

// Authentication builds a credentials/token failure.
func Authentication(msg string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

// Conflict builds a duplicate-key failure.
func Conflict(msg string) *Error {
	return &Error{Kind: ErrAlreadyExists, Message: msg}
}

// NotFound builds a missing-entity failure.
func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

// Forbidden builds a privilege failure.
func Forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

// RateLimited builds an admission failure.
func RateLimited(msg string) *Error {
	return &Error{Kind: ErrRateLimited, Message: msg}
}

// Internal wraps an unexpected failure. The cause is kept for logs only.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: ErrInternal, Message: msg, cause: cause}
}

// StatusOf maps any error to an HTTP status code.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status()
	}
	return statusOfKind(err)
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != ErrInternal {
		return e.Message
	}
	return http.StatusText(StatusOf(err))
}

func statusOfKind(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
