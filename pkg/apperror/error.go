// Package apperror defines the error values returned by the benchmark
// operations and their HTTP rendering.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an application error with an HTTP status and a stable code.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the driver or library error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is matches any *Error carrying the same code, so copies produced by
// WithMessage / WithInternal still compare equal to the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithInternal returns a copy of the error with an internal error attached
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   err,
		Details:    e.Details,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    message,
		Internal:   e.Internal,
		Details:    e.Details,
	}
}

// WithDetails returns a copy of the error with details attached
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   e.Internal,
		Details:    details,
	}
}

func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

var (
	ErrNotFound   = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrBadRequest = New(http.StatusBadRequest, "bad_request", "Invalid request")

	// ErrUnknownBenchmark is returned when a benchmark name is not registered.
	ErrUnknownBenchmark = New(http.StatusNotFound, "unknown_benchmark", "Unknown benchmark")

	// ErrInsufficientFixtureData is returned by the sampler when the catalog
	// holds fewer rows than the requested number of fixture IDs.
	ErrInsufficientFixtureData = New(http.StatusConflict, "insufficient_fixture_data", "Not enough rows to sample fixture IDs")

	ErrInternal = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
	ErrDatabase = New(http.StatusInternalServerError, "database_error", "Database operation failed")
)

// ToHTTPError converts err to a status code and a response body.
// Errors that are not *Error (anywhere in the chain) become 500s.
func ToHTTPError(err error) (int, map[string]any) {
	var appErr *Error
	if errors.As(err, &appErr) {
		errBody := map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if len(appErr.Details) > 0 {
			errBody["details"] = appErr.Details
		}
		return appErr.HTTPStatus, map[string]any{"error": errBody}
	}

	return http.StatusInternalServerError, map[string]any{
		"error": map[string]any{
			"code":    ErrInternal.Code,
			"message": ErrInternal.Message,
		},
	}
}

// NewBadRequest creates a bad request error with a custom message
func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

// NewNotFound creates a not found error for a resource type and ID
func NewNotFound(resourceType, id string) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s '%s' not found", resourceType, id))
}

// NewInternal creates an internal error with a message and optional wrapped error
func NewInternal(message string, err error) *Error {
	return ErrInternal.WithMessage(message).WithInternal(err)
}
