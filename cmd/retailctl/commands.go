package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/eshaffer321/retail-go/pkg/retail"
)

var resources = []string{"customers", "products", "suppliers", "sales", "expenses"}

// listFunc lists one resource. With all set it follows every page.
type listFunc func(ctx context.Context, opts *retail.ListOptions, all bool) (items interface{}, count int, err error)

func listFrom[T any](svc retail.ResourceService[T]) listFunc {
	return func(ctx context.Context, opts *retail.ListOptions, all bool) (interface{}, int, error) {
		if all {
			items, err := svc.ListAll(ctx, opts)
			return items, len(items), err
		}
		page, err := svc.List(ctx, opts)
		if err != nil {
			return nil, 0, err
		}
		return page, page.Count, nil
	}
}

func (a *app) lister(resource string) listFunc {
	switch resource {
	case "customers":
		return listFrom(a.client.Customers)
	case "products":
		return listFrom(a.client.Products)
	case "suppliers":
		return listFrom(a.client.Suppliers)
	case "sales":
		return listFrom(a.client.Sales)
	default:
		return listFrom(a.client.Expenses)
	}
}

func (a *app) subcommand(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.subcommand("login")
	username := fs.String("u", "", "Username")
	password := fs.String("p", os.Getenv("RETAIL_PASSWORD"), "Password (defaults to $RETAIL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		fs.Usage()
		return errors.Wrap(errUsage, "login needs -u and -p")
	}

	user, err := a.client.Auth.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	a.logger.Info("Logged in", "user", user.Username)
	return a.print(user)
}

func (a *app) whoami() error {
	user := a.client.Auth.CurrentUser()
	if !a.client.Auth.IsAuthenticated() || user == nil {
		return retail.ErrNotAuthenticated
	}
	return a.print(user)
}

func (a *app) list(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.Wrap(errUsage, "list needs a resource")
	}
	resource, err := parseResource(args[0])
	if err != nil {
		return err
	}

	fs := a.subcommand("list")
	opts := &retail.ListOptions{}
	fs.IntVar(&opts.Page, "page", 0, "Page number")
	fs.IntVar(&opts.PageSize, "size", 0, "Page size")
	fs.StringVar(&opts.Search, "search", "", "Search term")
	fs.StringVar(&opts.Ordering, "ordering", "", "Ordering field, prefix with - for descending")
	all := fs.Bool("all", false, "Follow every page")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	items, count, err := a.lister(resource)(ctx, opts, *all)
	if err != nil {
		return err
	}
	a.logger.Debug("Listed", "resource", resource, "count", count)
	return a.print(items)
}

func (a *app) listen(ctx context.Context, args []string) error {
	fs := a.subcommand("listen")
	duration := fs.Duration("for", 0, "Stop after this long (0 runs until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	var mu sync.Mutex
	unsubscribe := a.client.Notifications.Subscribe(func(n retail.Notification) {
		mu.Lock()
		defer mu.Unlock()
		if err := a.print(n); err != nil {
			a.logger.Warn("Failed to print notification", "error", err)
		}
	})
	defer unsubscribe()

	if err := a.client.Notifications.Connect(ctx); err != nil {
		return err
	}
	defer a.client.Notifications.Disconnect()

	select {
	case <-ctx.Done():
		a.logger.Info("Stopped listening", "unread", a.client.Notifications.UnreadCount())
		return nil
	case reason := <-a.realtimeDone:
		return errors.New(reason)
	}
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to write output")
}

// elapsed rounds d for reports
func elapsed(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}
