package retail

import (
	"net/http"

	"github.com/pkg/errors"

	internalTypes "github.com/eshaffer321/retail-go/internal/types"
)

var (
	// ErrNotAuthenticated is returned when the server rejects the credential
	ErrNotAuthenticated = internalTypes.ErrNotAuthenticated

	// ErrForbidden is returned when the credential lacks permission
	ErrForbidden = internalTypes.ErrForbidden

	// ErrLoginFailed is returned when login fails
	ErrLoginFailed = internalTypes.ErrLoginFailed

	// ErrSessionExpired is returned when the refresh credential is rejected.
	// The user has been logged out locally by the time it is returned.
	ErrSessionExpired = internalTypes.ErrSessionExpired

	// ErrNoRefreshToken is returned when a refresh is needed without a refresh token
	ErrNoRefreshToken = internalTypes.ErrNoRefreshToken

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = internalTypes.ErrRateLimited

	// ErrTimeout is returned on timeout
	ErrTimeout = internalTypes.ErrTimeout

	// ErrNotFound is returned when resource not found
	ErrNotFound = internalTypes.ErrNotFound

	// ErrInvalidRequest is returned for invalid requests
	ErrInvalidRequest = internalTypes.ErrInvalidRequest

	// ErrServerError is returned for server errors
	ErrServerError = internalTypes.ErrServerError

	// ErrNetwork is returned when no response was received
	ErrNetwork = internalTypes.ErrNetwork
)

// Error represents an API error
type Error = internalTypes.Error

// NewError creates a new API error
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	return internalTypes.StatusCodeOf(err)
}

// IsAuthError checks if error is authentication related
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrLoginFailed) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrNoRefreshToken)
}

// IsNetworkError reports whether no response was received
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsRetryable checks if error is retryable
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrNetwork) {
		return true
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}

	return false
}
