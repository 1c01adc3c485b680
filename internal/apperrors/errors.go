package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the Elara client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Token errors
	ErrNoRefreshToken   = errors.New("no refresh token stored")
	ErrRefreshRejected  = errors.New("refresh token rejected")
	ErrSessionCorrupted = errors.New("stored session is corrupted")

	// Stream errors
	ErrStreamClosed      = errors.New("stream closed")
	ErrStreamUnavailable = errors.New("stream unavailable")

	// General errors
	ErrNotFound = errors.New("not found")
)

// APIError represents a non-2xx HTTP response from the Elara API.
// The response body is retained (truncated) for diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an APIError with a 404 status.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
