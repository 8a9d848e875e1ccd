// Package errors holds the sentinel errors shared by the match services and
// their mapping onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	// ErrSearchUnavailable covers transport failures, 5xx answers and an open
	// circuit in front of the search index.
	ErrSearchUnavailable = errors.New("search backend unavailable")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrTimeout           = errors.New("operation timed out")
	ErrInternal          = errors.New("internal error")
)

// AppError attaches a caller-facing message and an explicit HTTP status to a
// sentinel.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Invalid is a 400 wrapping ErrInvalidInput.
func Invalid(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

// NotFound is a 404 wrapping ErrNotFound.
func NotFound(format string, args ...any) *AppError {
	return Newf(ErrNotFound, http.StatusNotFound, format, args...)
}

// HTTPStatusCode prefers the status of an AppError in err's chain and
// otherwise maps the sentinel.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrSearchUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
