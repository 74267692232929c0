package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/eshaffer321/retail-go/internal/types"
)

// handleHTTPError maps a non-2xx response onto the error taxonomy
func handleHTTPError(statusCode int, body []byte) error {
	msg, details := parseErrorBody(body)

	newErr := func(code string, sentinel error) error {
		m := msg
		if m == "" {
			m = fmt.Sprintf("%s (HTTP %d)", sentinel.Error(), statusCode)
		}
		return &types.Error{
			Code:       code,
			Message:    m,
			StatusCode: statusCode,
			Details:    details,
			Err:        sentinel,
		}
	}

	switch statusCode {
	case http.StatusBadRequest:
		return newErr("BAD_REQUEST", types.ErrInvalidRequest)
	case http.StatusUnauthorized:
		return newErr("UNAUTHORIZED", types.ErrNotAuthenticated)
	case http.StatusForbidden:
		return newErr("FORBIDDEN", types.ErrForbidden)
	case http.StatusNotFound:
		return newErr("NOT_FOUND", types.ErrNotFound)
	case http.StatusTooManyRequests:
		return newErr("RATE_LIMITED", types.ErrRateLimited)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return newErr("TIMEOUT", types.ErrTimeout)
	default:
		if statusCode >= 500 {
			baseMsg := fmt.Sprintf("server error: %d", statusCode)
			if desc := httpStatusDescription(statusCode); desc != "" {
				baseMsg = fmt.Sprintf("server error: %d (%s)", statusCode, desc)
			}

			if msg != "" {
				baseMsg = fmt.Sprintf("%s: %s", baseMsg, msg)
			}

			return &types.Error{
				Code:       "SERVER_ERROR",
				Message:    baseMsg,
				StatusCode: statusCode,
				Details:    details,
				Err:        types.ErrServerError,
			}
		}
		return &types.Error{
			Code:       "HTTP_ERROR",
			Message:    fmt.Sprintf("HTTP error: %d", statusCode),
			StatusCode: statusCode,
			Details:    details,
		}
	}
}

// parseErrorBody pulls a message out of the common error shapes:
// {"detail": ...}, {"message": ...}, {"error": ...} or a field-error map.
func parseErrorBody(body []byte) (string, map[string]interface{}) {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil || len(doc) == 0 {
		return "", nil
	}

	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := doc[key].(string); ok && s != "" {
			return s, doc
		}
	}

	// Field errors: {"name": ["This field is required."]}
	fields := make([]string, 0, len(doc))
	for field := range doc {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		switch v := doc[field].(type) {
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, fmt.Sprintf("%s: %s", field, s))
				}
			}
		case string:
			parts = append(parts, fmt.Sprintf("%s: %s", field, v))
		}
	}

	return strings.Join(parts, "; "), doc
}

// httpStatusDescription returns a human-readable description for common HTTP status codes.
// This helps users understand errors like 525 (SSL Handshake Failed) which are Cloudflare-specific.
func httpStatusDescription(statusCode int) string {
	descriptions := map[int]string{
		500: "Internal Server Error",
		501: "Not Implemented",
		502: "Bad Gateway",
		503: "Service Unavailable",
		504: "Gateway Timeout",
		520: "Web Server Error",
		521: "Web Server Is Down",
		522: "Connection Timed Out",
		523: "Origin Is Unreachable",
		524: "A Timeout Occurred",
		525: "SSL Handshake Failed",
		526: "Invalid SSL Certificate",
		527: "Railgun Error",
		530: "Origin DNS Error",
	}
	return descriptions[statusCode]
}
