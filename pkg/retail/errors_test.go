package retail

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		auth      bool
		retryable bool
		network   bool
	}{
		{name: "not authenticated", err: &Error{Code: "UNAUTHORIZED", StatusCode: 401, Err: ErrNotAuthenticated}, auth: true},
		{name: "session expired", err: &Error{Code: "SESSION_EXPIRED", Err: fmt.Errorf("%w: %w", ErrSessionExpired, ErrNotAuthenticated)}, auth: true},
		{name: "no refresh token", err: errors.Wrap(ErrNoRefreshToken, "refresh"), auth: true},
		{name: "forbidden", err: &Error{Code: "FORBIDDEN", StatusCode: 403, Err: ErrForbidden}},
		{name: "rate limited", err: &Error{Code: "RATE_LIMITED", StatusCode: 429, Err: ErrRateLimited}, retryable: true},
		{name: "bad gateway", err: &Error{Code: "SERVER_ERROR", StatusCode: http.StatusBadGateway, Err: ErrServerError}, retryable: true},
		{name: "unknown 5xx", err: &Error{Code: "HTTP_ERROR", StatusCode: 599}, retryable: true},
		{name: "network", err: &Error{Code: "NETWORK_ERROR", Err: fmt.Errorf("%w: dial tcp", ErrNetwork)}, retryable: true, network: true},
		{name: "not found", err: errors.Wrap(&Error{Code: "NOT_FOUND", StatusCode: 404, Err: ErrNotFound}, "get")},
		{name: "plain", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.auth, IsAuthError(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
			assert.Equal(t, tt.network, IsNetworkError(tt.err))
		})
	}
}

func TestNewError(t *testing.T) {
	err := NewError("CUSTOM", "custom failure")
	assert.Equal(t, "custom failure", err.Error())
	assert.True(t, errors.Is(err, &Error{Code: "CUSTOM"}))
	assert.Zero(t, StatusCode(err))
}
