package retail

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eshaffer321/retail-go/internal/auth"
	"github.com/eshaffer321/retail-go/internal/metrics"
	"github.com/eshaffer321/retail-go/internal/realtime"
	"github.com/eshaffer321/retail-go/internal/transport"
	internalTypes "github.com/eshaffer321/retail-go/internal/types"
)

const (
	// DefaultBaseURL is the default retail API base URL
	DefaultBaseURL = internalTypes.DefaultBaseURL

	// DefaultTimeout is the per-request timeout
	DefaultTimeout = internalTypes.DefaultTimeout

	// UserAgent is the user agent string
	UserAgent = internalTypes.UserAgent
)

// Client is the main retail API client
type Client struct {
	// Service interfaces
	Auth          AuthService
	Customers     CustomerService
	Products      ProductService
	Suppliers     SupplierService
	Sales         SaleService
	Expenses      ExpenseService
	Notifications NotificationService

	// Internal fields
	baseURL   string
	transport Transport
	creds     *auth.Manager
	realtime  *realtime.Channel
	options   *ClientOptions
}

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL overrides the default API base URL
	BaseURL string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the per-request timeout
	Timeout time.Duration

	// AccessToken and RefreshToken seed the credential pair directly
	AccessToken  string
	RefreshToken string

	// CredentialStore persists the credential pair. Defaults to memory.
	CredentialStore CredentialStore

	// Logger for debug logging
	Logger Logger

	// RetryConfig enables retries of 429 and 502-504 responses
	RetryConfig *internalTypes.RetryConfig

	// RateLimiter for rate limiting. *rate.Limiter satisfies it.
	RateLimiter RateLimiter

	// Hooks for observability
	Hooks *internalTypes.Hooks

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions

	// MetricsRegisterer enables Prometheus metrics when set
	MetricsRegisterer prometheus.Registerer

	// OnSessionExpired runs after a failed token refresh has logged the
	// user out locally
	OnSessionExpired func(err error)

	// RealtimeURL overrides the notification endpoint derived from BaseURL
	RealtimeURL string

	// RealtimePort is the notification port. Defaults to 8000.
	RealtimePort int

	KeepAliveInterval    time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	// OnRealtimeStatus observes notification channel state changes
	OnRealtimeStatus func(RealtimeStatus)

	// RealtimeDialer replaces the websocket dialer
	RealtimeDialer realtime.Dialer
}

// Logger interface for logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Transport sends API requests
type Transport interface {
	Do(ctx context.Context, req *transport.Request, result interface{}, opts ...transport.RequestOption) error
	RefreshAccessToken(ctx context.Context) (string, error)
}

// NewClient creates a new retail client
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}

	// Initialize Sentry if DSN is provided
	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}
		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}
		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}
		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}

		if err := sentry.Init(sentryOpts); err != nil {
			// Log error but don't fail client creation
			if opts.Logger != nil {
				opts.Logger.Error("Failed to initialize Sentry", "error", err)
			}
		}
	}

	// Set defaults
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RealtimePort == 0 {
		opts.RealtimePort = realtime.DefaultPort
	}

	var logger internalTypes.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	var collector *metrics.Collector
	if opts.MetricsRegisterer != nil {
		var err error
		collector, err = metrics.New(opts.MetricsRegisterer)
		if err != nil {
			return nil, errors.Wrap(err, "failed to register metrics")
		}
	}

	c := &Client{
		baseURL: opts.BaseURL,
		options: opts,
		creds:   auth.NewManager(opts.CredentialStore, logger),
	}

	ctx := context.Background()
	if opts.AccessToken != "" {
		seed := &Credentials{AccessToken: opts.AccessToken, RefreshToken: opts.RefreshToken}
		if err := c.creds.SetSession(ctx, seed); err != nil {
			return nil, err
		}
	} else if err := c.creds.Load(ctx); err != nil && !errors.Is(err, ErrNotAuthenticated) && logger != nil {
		logger.Warn("Failed to load credentials", "error", err)
	}

	var limiter transport.RateLimiter
	if opts.RateLimiter != nil {
		limiter = opts.RateLimiter
	}

	c.transport = transport.NewGateway(&transport.Options{
		BaseURL:          opts.BaseURL,
		HTTPClient:       opts.HTTPClient,
		Timeout:          opts.Timeout,
		RetryConfig:      opts.RetryConfig,
		Credentials:      c.creds,
		RateLimiter:      limiter,
		Logger:           logger,
		Hooks:            opts.Hooks,
		Metrics:          collector,
		OnSessionExpired: c.sessionExpired,
	})

	endpoint := opts.RealtimeURL
	if endpoint == "" {
		var err error
		endpoint, err = realtime.Endpoint(opts.BaseURL, opts.RealtimePort)
		if err != nil {
			return nil, err
		}
	}

	c.realtime = realtime.NewChannel(realtime.Options{
		Endpoint:             endpoint,
		Dialer:               opts.RealtimeDialer,
		KeepAliveInterval:    opts.KeepAliveInterval,
		ReconnectDelay:       opts.ReconnectDelay,
		MaxReconnectAttempts: opts.MaxReconnectAttempts,
		Logger:               logger,
		Metrics:              collector,
		OnStatusChange:       opts.OnRealtimeStatus,
	})

	c.initServices()
	return c, nil
}

// NewClientWithToken creates a client with an access token
func NewClientWithToken(token string) (*Client, error) {
	return NewClient(&ClientOptions{
		AccessToken: token,
	})
}

// initServices initializes all service implementations
func (c *Client) initServices() {
	c.Auth = &authService{client: c}
	c.Customers = newResourceService[Customer](c, "customers")
	c.Products = newResourceService[Product](c, "products")
	c.Suppliers = newResourceService[Supplier](c, "suppliers")
	c.Sales = newResourceService[Sale](c, "sales")
	c.Expenses = newResourceService[Expense](c, "expenses")
	c.Notifications = newNotificationCenter(c)
}

// Credentials returns a copy of the current credential pair
func (c *Client) Credentials() Credentials {
	return c.creds.Credentials()
}

// sessionExpired runs once the gateway has cleared the credentials after a
// failed refresh.
func (c *Client) sessionExpired(err error) {
	c.realtime.Disconnect()
	if c.options.Logger != nil {
		c.options.Logger.Warn("Session expired, logged out", "error", err)
	}
	if c.options.OnSessionExpired != nil {
		c.options.OnSessionExpired(err)
	}
}

// execute sends a request and reports failures to Sentry. 401s are part of
// normal refresh flow and are not reported.
func (c *Client) execute(ctx context.Context, req *transport.Request, result interface{}, opts ...transport.RequestOption) error {
	start := time.Now()
	err := c.transport.Do(ctx, req, result, opts...)
	if err == nil {
		return nil
	}

	status := internalTypes.StatusCodeOf(err)
	if status == http.StatusUnauthorized {
		return err
	}

	capture := func(hub *sentry.Hub) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("http.method", req.Method)
			scope.SetTag("http.path", req.Path)
			scope.SetTag("http.status", strconv.Itoa(status))
			scope.SetContext("request", map[string]interface{}{
				"method":   req.Method,
				"path":     req.Path,
				"status":   status,
				"duration": time.Since(start).String(),
			})
			hub.CaptureException(err)
		})
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		capture(hub)
	} else {
		capture(sentry.CurrentHub())
	}

	return err
}

// Close disconnects notifications and flushes pending Sentry events
func (c *Client) Close() {
	c.realtime.Disconnect()
	sentry.Flush(2 * time.Second)
}
