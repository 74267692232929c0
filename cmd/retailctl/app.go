package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/eshaffer321/retail-go/internal/config"
	"github.com/eshaffer321/retail-go/internal/logging"
	"github.com/eshaffer321/retail-go/internal/realtime"
	"github.com/eshaffer321/retail-go/pkg/retail"
)

var errUsage = errors.New("usage")

const usage = `Usage: retailctl [flags] <command> [args]

Commands:
  login -u <username> -p <password>   sign in and store credentials
  logout                              forget stored credentials
  whoami                              show the signed in user
  list <resource> [flags]             list customers, products, suppliers, sales or expenses
  listen [-for duration]              print notifications as they arrive
  check [-output dir]                 list every resource and report what failed

Flags:
`

type app struct {
	cfg    *config.Config
	logger *logging.Logger
	client *retail.Client
	redis  *redis.Client
	out    io.Writer
	errOut io.Writer

	// realtimeDone receives the terminal channel error, if any
	realtimeDone chan string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("retailctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	logger, err := logging.New(stderr, cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.client.Auth.Logout(ctx)
	case "whoami":
		return a.whoami()
	case "list":
		return a.list(ctx, rest)
	case "listen":
		return a.listen(ctx, rest)
	case "check":
		return a.check(ctx, rest)
	default:
		fs.Usage()
		return errors.Wrapf(errUsage, "unknown command %q", cmd)
	}
}

func newApp(cfg *config.Config, logger *logging.Logger, out, errOut io.Writer) (*app, error) {
	a := &app{
		cfg:          cfg,
		logger:       logger,
		out:          out,
		errOut:       errOut,
		realtimeDone: make(chan string, 1),
	}

	var store retail.CredentialStore
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = retail.NewRedisStore(a.redis, cfg.RedisPrefix, 0)
	} else {
		store = retail.NewFileStore(cfg.CredentialsFile)
	}

	opts := &retail.ClientOptions{
		BaseURL:         cfg.BaseURL,
		RealtimeURL:     cfg.RealtimeURL,
		Timeout:         cfg.Timeout,
		CredentialStore: store,
		Logger:          logger,
		SentryDSN:       cfg.SentryDSN,
		OnSessionExpired: func(err error) {
			logger.Warn("Session expired, run retailctl login", "error", err)
		},
		OnRealtimeStatus: a.realtimeStatus,
	}
	if cfg.RateLimit > 0 {
		opts.RateLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	client, err := retail.NewClient(opts)
	if err != nil {
		a.close()
		return nil, errors.Wrap(err, "failed to create client")
	}
	a.client = client
	return a, nil
}

func (a *app) realtimeStatus(s retail.RealtimeStatus) {
	a.logger.Debug("Notification channel", "state", s.State.String(), "attempts", s.ReconnectAttempts, "error", s.LastError)

	if s.State != retail.RealtimeDisconnected {
		return
	}
	if s.LastError == realtime.ErrServerUnavailable || s.LastError == realtime.ErrConnectionLost {
		select {
		case a.realtimeDone <- s.LastError:
		default:
		}
	}
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis", "error", err)
		}
	}
}

func parseResource(name string) (string, error) {
	name = strings.ToLower(strings.Trim(name, "/"))
	for _, r := range resources {
		if r == name {
			return r, nil
		}
	}
	return "", errors.Wrapf(errUsage, "unknown resource %q (want one of %s)", name, strings.Join(resources, ", "))
}
