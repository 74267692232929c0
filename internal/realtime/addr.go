package realtime

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultPort is the port the notification endpoint listens on
	DefaultPort = 8000

	// DefaultPath is the notification endpoint path
	DefaultPath = "/ws/notifications/"
)

// CanonicalHost reduces a tenant subdomain to its registrable parent domain so
// every tenant reaches the same backend: shop1.example.com -> example.com.
// IPs and single-label hosts such as localhost are returned unchanged.
func CanonicalHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}

	parent, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return parent
}

// Endpoint derives the websocket endpoint from the API base URL. An https
// base selects wss.
func Endpoint(baseURL string, port int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", errors.Wrap(err, "invalid base URL")
	}
	if u.Hostname() == "" {
		return "", errors.Errorf("base URL %q has no host", baseURL)
	}

	scheme := "ws"
	if u.Scheme == "https" || u.Scheme == "wss" {
		scheme = "wss"
	}

	host := CanonicalHost(u.Hostname())
	if port > 0 {
		host = net.JoinHostPort(host, strconv.Itoa(port))
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	return scheme + "://" + host + DefaultPath, nil
}

// withToken appends the token query parameter
func withToken(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "invalid endpoint")
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
