package main

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eshaffer321/retail-go/pkg/retail"
)

const defaultLimit = 50

// retailTools holds the retail client and implements all tool handlers
type retailTools struct {
	client *retail.Client
}

// ListInput is shared by the list tools
type ListInput struct {
	Search string `json:"search,omitempty" jsonschema:"Search term (optional)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of items to return (default: 50)"`
}

func (in ListInput) options() *retail.ListOptions {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return &retail.ListOptions{Search: in.Search, PageSize: limit}
}

type CustomerEntry struct {
	ID        int64      `json:"id" jsonschema:"Customer ID"`
	Name      string     `json:"name" jsonschema:"Customer name"`
	Email     string     `json:"email,omitempty" jsonschema:"Email address"`
	Phone     string     `json:"phone,omitempty" jsonschema:"Phone number"`
	CreatedAt *time.Time `json:"createdAt,omitempty" jsonschema:"When the customer was created"`
}

type ListCustomersOutput struct {
	Customers []CustomerEntry `json:"customers" jsonschema:"Matching customers"`
	Count     int             `json:"count" jsonschema:"Number of customers returned"`
	Total     int             `json:"total" jsonschema:"Number of customers matching on the server"`
}

func (t *retailTools) ListCustomers(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListCustomersOutput, error) {
	page, err := t.client.Customers.List(ctx, input.options())
	if err != nil {
		return nil, ListCustomersOutput{}, fmt.Errorf("failed to fetch customers: %w", err)
	}

	entries := make([]CustomerEntry, 0, len(page.Results))
	for _, c := range page.Results {
		entries = append(entries, CustomerEntry{
			ID:        c.ID,
			Name:      c.Name,
			Email:     c.Email,
			Phone:     c.Phone,
			CreatedAt: c.CreatedAt,
		})
	}

	return nil, ListCustomersOutput{
		Customers: entries,
		Count:     len(entries),
		Total:     page.Count,
	}, nil
}

type ProductEntry struct {
	ID       int64   `json:"id" jsonschema:"Product ID"`
	Name     string  `json:"name" jsonschema:"Product name"`
	SKU      string  `json:"sku,omitempty" jsonschema:"Stock keeping unit"`
	Price    float64 `json:"price" jsonschema:"Sale price"`
	Cost     float64 `json:"cost,omitempty" jsonschema:"Purchase cost"`
	Stock    int     `json:"stock" jsonschema:"Units in stock"`
	Supplier *int64  `json:"supplier,omitempty" jsonschema:"Supplier ID"`
}

type ListProductsOutput struct {
	Products []ProductEntry `json:"products" jsonschema:"Matching products"`
	Count    int            `json:"count" jsonschema:"Number of products returned"`
	Total    int            `json:"total" jsonschema:"Number of products matching on the server"`
}

func (t *retailTools) ListProducts(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListProductsOutput, error) {
	page, err := t.client.Products.List(ctx, input.options())
	if err != nil {
		return nil, ListProductsOutput{}, fmt.Errorf("failed to fetch products: %w", err)
	}

	entries := make([]ProductEntry, 0, len(page.Results))
	for _, p := range page.Results {
		entries = append(entries, ProductEntry{
			ID:       p.ID,
			Name:     p.Name,
			SKU:      p.SKU,
			Price:    p.Price,
			Cost:     p.Cost,
			Stock:    p.Stock,
			Supplier: p.SupplierID,
		})
	}

	return nil, ListProductsOutput{
		Products: entries,
		Count:    len(entries),
		Total:    page.Count,
	}, nil
}

type GetNotificationsInput struct {
	UnreadOnly bool `json:"unreadOnly,omitempty" jsonschema:"Only return unread notifications"`
	Limit      int  `json:"limit,omitempty" jsonschema:"Maximum number of notifications to return (default: 50)"`
}

type NotificationEntry struct {
	ID        int64      `json:"id" jsonschema:"Notification ID"`
	Title     string     `json:"title" jsonschema:"Notification title"`
	Message   string     `json:"message" jsonschema:"Notification body"`
	Level     string     `json:"level,omitempty" jsonschema:"Severity such as info or warning"`
	Link      string     `json:"link,omitempty" jsonschema:"Related link"`
	Read      bool       `json:"read" jsonschema:"Whether the notification was read"`
	CreatedAt *time.Time `json:"createdAt,omitempty" jsonschema:"When the notification was created"`
}

type GetNotificationsOutput struct {
	Notifications []NotificationEntry `json:"notifications" jsonschema:"Notifications, newest first"`
	Unread        int                 `json:"unread" jsonschema:"Unread count reported by the server"`
	Connected     bool                `json:"connected" jsonschema:"Whether the notification channel is connected"`
	LastError     string              `json:"lastError,omitempty" jsonschema:"Last notification channel error"`
}

func (t *retailTools) GetNotifications(ctx context.Context, req *mcp.CallToolRequest, input GetNotificationsInput) (*mcp.CallToolResult, GetNotificationsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var entries []NotificationEntry
	for _, n := range t.client.Notifications.Items() {
		if input.UnreadOnly && n.IsRead {
			continue
		}
		if len(entries) == limit {
			break
		}
		entries = append(entries, NotificationEntry{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Level:     n.Level,
			Link:      n.Link,
			Read:      n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}

	status := t.client.Notifications.Status()
	return nil, GetNotificationsOutput{
		Notifications: entries,
		Unread:        t.client.Notifications.UnreadCount(),
		Connected:     status.Connected(),
		LastError:     status.LastError,
	}, nil
}

type MarkNotificationsReadInput struct{}

type MarkNotificationsReadOutput struct {
	Marked int `json:"marked" jsonschema:"Number of notifications that were unread"`
}

func (t *retailTools) MarkNotificationsRead(ctx context.Context, req *mcp.CallToolRequest, input MarkNotificationsReadInput) (*mcp.CallToolResult, MarkNotificationsReadOutput, error) {
	marked := 0
	for _, n := range t.client.Notifications.Items() {
		if !n.IsRead {
			marked++
		}
	}
	t.client.Notifications.MarkAllRead()
	return nil, MarkNotificationsReadOutput{Marked: marked}, nil
}
