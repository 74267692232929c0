package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eshaffer321/retail-go/internal/metrics"
	"github.com/eshaffer321/retail-go/internal/types"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	authHeaderKey = "Authorization"
	requestIDKey  = "X-Request-ID"
	contentType   = "application/json"
)

// CredentialSource is the credential pair the gateway reads on every send and
// writes only from the refresh routine.
type CredentialSource interface {
	AccessToken() string
	RefreshToken() string
	UpdateAccessToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// RateLimiter gates outbound sends
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Gateway sends authenticated API requests. On a 401 it obtains a fresh access
// token through a single shared refresh and replays the request once.
type Gateway struct {
	baseURL          string
	httpClient       *http.Client
	retryClient      *retryablehttp.Client
	headers          map[string]string
	creds            CredentialSource
	limiter          RateLimiter
	logger           types.Logger
	hooks            *types.Hooks
	metrics          *metrics.Collector
	refreshPath      string
	timeout          time.Duration
	onSessionExpired func(err error)

	refresh refreshCoordinator
}

// Request describes one API call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	Header http.Header
}

// RequestOption tunes how the interception layer treats a request
type RequestOption func(*requestOptions)

type requestOptions struct {
	skipAuthRefresh bool
}

// SkipAuthRefresh opts a request out of 401 handling. Used by the login and
// refresh calls themselves.
func SkipAuthRefresh() RequestOption {
	return func(o *requestOptions) {
		o.skipAuthRefresh = true
	}
}

// Options for the gateway
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Timeout     time.Duration
	Headers     map[string]string
	RetryConfig *types.RetryConfig
	Credentials CredentialSource
	RateLimiter RateLimiter
	Logger      types.Logger
	Hooks       *types.Hooks
	Metrics     *metrics.Collector
	RefreshPath string

	// OnSessionExpired runs after an unrecoverable refresh failure, once the
	// credentials have been cleared. Callers use it to return to login.
	OnSessionExpired func(err error)
}

// NewGateway creates a new gateway
func NewGateway(opts *Options) *Gateway {
	if opts == nil {
		opts = &Options{}
	}

	if opts.BaseURL == "" {
		opts.BaseURL = types.DefaultBaseURL
	}

	if opts.Timeout <= 0 {
		opts.Timeout = types.DefaultTimeout
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: opts.Timeout,
		}
	}

	if opts.RefreshPath == "" {
		opts.RefreshPath = types.RefreshPath
	}

	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = opts.HTTPClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		retryClient.CheckRetry = checkRetry
		retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
		retryClient.Logger = nil

		if opts.Logger != nil {
			retryClient.Logger = &retryLogger{logger: opts.Logger}
		}
	}

	headers := map[string]string{
		"Accept":       contentType,
		"Content-Type": contentType,
		"User-Agent":   types.UserAgent,
		"device-uuid":  uuid.New().String(),
	}

	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &Gateway{
		baseURL:          strings.TrimRight(opts.BaseURL, "/"),
		httpClient:       opts.HTTPClient,
		retryClient:      retryClient,
		headers:          headers,
		creds:            opts.Credentials,
		limiter:          opts.RateLimiter,
		logger:           opts.Logger,
		hooks:            opts.Hooks,
		metrics:          opts.Metrics,
		refreshPath:      opts.RefreshPath,
		timeout:          opts.Timeout,
		onSessionExpired: opts.OnSessionExpired,
	}
}

// BaseURL returns the API root
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// Do sends req and decodes a successful JSON response into result. A 401 is
// recovered at most once per call via the shared refresh. Every other failure
// is returned unchanged in kind.
func (g *Gateway) Do(ctx context.Context, req *Request, result interface{}, opts ...RequestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	if req.Method == "" {
		req.Method = http.MethodGet
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
	}

	retried := false
	for {
		status, respBody, err := g.send(ctx, req, body)
		if err != nil {
			return err
		}

		if status == http.StatusUnauthorized && !o.skipAuthRefresh && !retried {
			retried = true
			if _, err := g.RefreshAccessToken(ctx); err != nil {
				return err
			}
			continue
		}

		if status < 200 || status >= 300 {
			return g.classify(req, status, respBody)
		}

		if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return errors.Wrap(err, "failed to unmarshal result")
			}
		}
		return nil
	}
}

// RefreshAccessToken obtains a new access token, sharing any refresh already
// in flight. On failure the credentials are cleared and OnSessionExpired runs
// before any waiter is released.
func (g *Gateway) RefreshAccessToken(ctx context.Context) (string, error) {
	return g.refresh.do(ctx, func() (string, error) {
		if g.logger != nil {
			g.logger.Info("Refreshing access token")
		}

		// The refresh is shared, so no single caller's cancellation may abort it
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()

		token, err := g.requestNewAccessToken(refreshCtx)
		g.metrics.ObserveRefresh(err == nil)
		if err != nil {
			return "", g.expireSession(refreshCtx, err)
		}

		if g.logger != nil {
			g.logger.Info("Access token refreshed")
		}
		return token, nil
	})
}

// requestNewAccessToken calls the refresh endpoint with the stored refresh token
func (g *Gateway) requestNewAccessToken(ctx context.Context) (string, error) {
	if g.creds == nil {
		return "", types.ErrNoRefreshToken
	}

	refreshToken := g.creds.RefreshToken()
	if refreshToken == "" {
		return "", types.ErrNoRefreshToken
	}

	var resp struct {
		Access string `json:"access"`
	}
	err := g.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   g.refreshPath,
		Body:   map[string]string{"refresh": refreshToken},
	}, &resp, SkipAuthRefresh())
	if err != nil {
		return "", err
	}

	if resp.Access == "" {
		return "", errors.New("no access token in refresh response")
	}

	if err := g.creds.UpdateAccessToken(ctx, resp.Access); err != nil {
		return "", err
	}
	return resp.Access, nil
}

// expireSession tears the session down locally after a failed refresh
func (g *Gateway) expireSession(ctx context.Context, cause error) error {
	if g.logger != nil {
		g.logger.Error("Token refresh failed, ending session", "error", cause)
	}

	if g.creds != nil {
		if err := g.creds.Clear(ctx); err != nil && g.logger != nil {
			g.logger.Warn("Failed to clear credentials", "error", err)
		}
	}

	sessionErr := &types.Error{
		Code:       "SESSION_EXPIRED",
		Message:    fmt.Sprintf("session expired: %v", cause),
		StatusCode: types.StatusCodeOf(cause),
		Err:        fmt.Errorf("%w: %w", types.ErrSessionExpired, cause),
	}

	if g.onSessionExpired != nil {
		g.onSessionExpired(sessionErr)
	}
	return sessionErr
}

// send performs one HTTP round trip with the current credentials attached.
// A non-nil error means no response was received.
func (g *Gateway) send(ctx context.Context, req *Request, body []byte) (int, []byte, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return 0, nil, errors.Wrap(err, "rate limiter")
		}
	}

	u := g.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, reader)
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to create request")
	}

	for k, v := range g.headers {
		httpReq.Header.Set(k, v)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	requestID := uuid.New().String()
	httpReq.Header.Set(requestIDKey, requestID)

	// Read at send time so a replay picks up the refreshed token
	if g.creds != nil {
		if token := g.creds.AccessToken(); token != "" {
			httpReq.Header.Set(authHeaderKey, "Bearer "+token)
		}
	}

	if g.hooks != nil && g.hooks.OnRequest != nil {
		g.hooks.OnRequest(ctx, httpReq)
	}

	if g.logger != nil {
		g.logger.Debug("API request", "method", req.Method, "path", req.Path, "request_id", requestID)
	}

	start := time.Now()
	resp, err := g.doRequest(httpReq)
	duration := time.Since(start)

	if err != nil {
		g.metrics.ObserveRequest(req.Method, 0, duration)
		netErr := &types.Error{
			Code:      "NETWORK_ERROR",
			Message:   fmt.Sprintf("%s %s: no response: %v", req.Method, req.Path, err),
			RequestID: requestID,
			Err:       fmt.Errorf("%w: %w", types.ErrNetwork, err),
		}
		if g.logger != nil {
			g.logger.Error("API request failed without response", "method", req.Method, "path", req.Path, "error", err)
		}
		if g.hooks != nil && g.hooks.OnError != nil {
			g.hooks.OnError(ctx, netErr)
		}
		return 0, nil, netErr
	}
	defer resp.Body.Close()

	g.metrics.ObserveRequest(req.Method, resp.StatusCode, duration)

	if g.hooks != nil && g.hooks.OnResponse != nil {
		g.hooks.OnResponse(ctx, resp, duration)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &types.Error{
			Code:      "NETWORK_ERROR",
			Message:   fmt.Sprintf("%s %s: failed to read response: %v", req.Method, req.Path, err),
			RequestID: requestID,
			Err:       fmt.Errorf("%w: %w", types.ErrNetwork, err),
		}
	}

	if g.logger != nil {
		g.logger.Debug("API response", "status", resp.StatusCode, "duration", duration, "size", len(respBody))
	}

	return resp.StatusCode, respBody, nil
}

// doRequest executes the HTTP request with retry if configured
func (g *Gateway) doRequest(req *http.Request) (*http.Response, error) {
	if g.retryClient != nil {
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return g.retryClient.Do(retryReq)
	}
	return g.httpClient.Do(req)
}

// classify turns a non-2xx response into an error and logs it by class
func (g *Gateway) classify(req *Request, status int, body []byte) error {
	err := handleHTTPError(status, body)

	if g.logger != nil {
		switch {
		case status >= 500:
			g.logger.Error("API server error", "method", req.Method, "path", req.Path, "status", status, "error", err)
		case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
			g.logger.Warn("API request rejected", "method", req.Method, "path", req.Path, "status", status)
		default:
			g.logger.Info("API request failed", "method", req.Method, "path", req.Path, "status", status)
		}
	}

	return err
}

// checkRetry is the opt-in retry policy. It never retries a request that got
// no response or a 401, so the gateway's own semantics hold underneath.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil || resp == nil {
		return false, err
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// retryLogger adapts our logger to retryablehttp
type retryLogger struct {
	logger types.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
