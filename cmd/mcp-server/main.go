package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eshaffer321/retail-go/internal/config"
	"github.com/eshaffer321/retail-go/internal/logging"
	"github.com/eshaffer321/retail-go/pkg/retail"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// stdout carries the MCP protocol, so logs go to stderr
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("invalid log level: %v", err)
	}

	client, err := retail.NewClient(&retail.ClientOptions{
		BaseURL:         cfg.BaseURL,
		RealtimeURL:     cfg.RealtimeURL,
		Timeout:         cfg.Timeout,
		CredentialStore: retail.NewFileStore(cfg.CredentialsFile),
		Logger:          logger,
		SentryDSN:       cfg.SentryDSN,
	})
	if err != nil {
		log.Fatalf("failed to initialize retail client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := ensureLogin(ctx, client); err != nil {
		log.Fatalf("not signed in: %v (run retailctl login or set RETAIL_USERNAME and RETAIL_PASSWORD)", err)
	}

	// Notifications collected while the server runs back get_notifications
	if err := client.Notifications.Connect(ctx); err != nil {
		logger.Warn("Notifications unavailable", "error", err)
	}

	impl := &mcp.Implementation{
		Name:    "retail",
		Version: "1.0.0",
	}

	server := mcp.NewServer(impl, nil)
	registerTools(server, client)

	// Run server over stdio transport
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// ensureLogin signs in with RETAIL_USERNAME/RETAIL_PASSWORD unless stored
// credentials are already present
func ensureLogin(ctx context.Context, client *retail.Client) error {
	if client.Auth.IsAuthenticated() {
		return nil
	}

	username, password := os.Getenv("RETAIL_USERNAME"), os.Getenv("RETAIL_PASSWORD")
	if username == "" || password == "" {
		return retail.ErrNotAuthenticated
	}
	_, err := client.Auth.Login(ctx, username, password)
	return err
}

func registerTools(server *mcp.Server, client *retail.Client) {
	tools := &retailTools{client: client}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_customers",
		Description: "List customers, optionally filtered by a search term. Returns name, email, phone and creation time.",
	}, tools.ListCustomers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_products",
		Description: "List products, optionally filtered by a search term. Returns SKU, price, cost and stock level.",
	}, tools.ListProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_notifications",
		Description: "Get notifications received since the server started, newest first, with the unread count and the notification channel state.",
	}, tools.GetNotifications)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_notifications_read",
		Description: "Mark every received notification as read.",
	}, tools.MarkNotificationsRead)
}
