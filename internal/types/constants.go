package types

import (
	"errors"
	"time"
)

const (
	// DefaultBaseURL is the default retail API base URL
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultTimeout is the fixed per-request timeout
	DefaultTimeout = 10 * time.Second

	// UserAgent is the user agent string
	UserAgent = "retail-go/1.0.0"

	// LoginPath is the login endpoint
	LoginPath = "/auth/login/"

	// RefreshPath is the token refresh endpoint
	RefreshPath = "/auth/refresh/"
)

// Common errors
var (
	// ErrNotAuthenticated is returned when the server rejects the credential (401)
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when the credential lacks permission (403)
	ErrForbidden = errors.New("forbidden")

	// ErrLoginFailed is returned when login fails
	ErrLoginFailed = errors.New("login failed")

	// ErrSessionExpired is returned when the refresh credential is rejected
	ErrSessionExpired = errors.New("session expired")

	// ErrNoRefreshToken is returned when a refresh is needed but no refresh token is stored
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidRequest is returned for 400 responses
	ErrInvalidRequest = errors.New("invalid request")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")

	// ErrNetwork is returned when no response was received
	ErrNetwork = errors.New("network error")
)
