package main

import (
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/retail-go/internal/devserver"
	"github.com/eshaffer321/retail-go/pkg/retail"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// newTools logs a client in against a fresh development server
func newTools(t *testing.T, opts devserver.Options) (*retailTools, *devserver.Server) {
	t.Helper()

	srv := devserver.New(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := retail.NewClient(&retail.ClientOptions{
		BaseURL:     ts.URL + "/api",
		RealtimeURL: "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/notifications/",
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(client.Close)

	if _, err := client.Auth.Login(context.Background(), "admin", "admin"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return &retailTools{client: client}, srv
}

func TestListCustomersTool(t *testing.T) {
	tools, _ := newTools(t, devserver.Options{})
	ctx := context.Background()

	for _, name := range []string{"Ada", "Grace", "Linus"} {
		if _, err := tools.client.Customers.Create(ctx, &retail.Customer{Name: name}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	_, output, err := tools.ListCustomers(ctx, nil, ListInput{Limit: 2})
	if err != nil {
		t.Fatalf("ListCustomers failed: %v", err)
	}

	if output.Count != 2 {
		t.Errorf("Expected 2 customers, got %d", output.Count)
	}
	if output.Total != 3 {
		t.Errorf("Expected total 3, got %d", output.Total)
	}
	if output.Customers[0].Name != "Ada" || output.Customers[0].CreatedAt == nil {
		t.Errorf("Unexpected first customer: %+v", output.Customers[0])
	}
}

func TestListProductsTool(t *testing.T) {
	tools, _ := newTools(t, devserver.Options{})
	ctx := context.Background()

	supplier, err := tools.client.Suppliers.Create(ctx, &retail.Supplier{Name: "Acme"})
	if err != nil {
		t.Fatalf("Create supplier failed: %v", err)
	}
	if _, err := tools.client.Products.Create(ctx, &retail.Product{
		Name: "Pen", SKU: "PEN-1", Price: 2.5, Stock: 40, SupplierID: &supplier.ID,
	}); err != nil {
		t.Fatalf("Create product failed: %v", err)
	}

	_, output, err := tools.ListProducts(ctx, nil, ListInput{})
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}

	if output.Count != 1 {
		t.Fatalf("Expected 1 product, got %d", output.Count)
	}
	p := output.Products[0]
	if p.SKU != "PEN-1" || p.Stock != 40 || p.Supplier == nil || *p.Supplier != supplier.ID {
		t.Errorf("Unexpected product: %+v", p)
	}
}

func TestListToolsRequireLogin(t *testing.T) {
	tools, _ := newTools(t, devserver.Options{})
	ctx := context.Background()

	if err := tools.client.Auth.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	_, _, err := tools.ListCustomers(ctx, nil, ListInput{})
	if !retail.IsAuthError(err) {
		t.Errorf("Expected an auth error, got %v", err)
	}
}

func TestNotificationTools(t *testing.T) {
	tools, srv := newTools(t, devserver.Options{NotifyOnCreate: true})
	ctx := context.Background()

	if err := tools.client.Notifications.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	waitFor(t, func() bool { return srv.Clients() == 1 })

	if _, err := tools.client.Expenses.Create(ctx, &retail.Expense{Category: "rent", Amount: 900}); err != nil {
		t.Fatalf("Create expense failed: %v", err)
	}
	if _, err := tools.client.Sales.Create(ctx, &retail.Sale{Total: 15}); err != nil {
		t.Fatalf("Create sale failed: %v", err)
	}
	waitFor(t, func() bool { return tools.client.Notifications.UnreadCount() == 2 })
	waitFor(t, func() bool { return len(tools.client.Notifications.Items()) == 2 })

	_, output, err := tools.GetNotifications(ctx, nil, GetNotificationsInput{Limit: 1})
	if err != nil {
		t.Fatalf("GetNotifications failed: %v", err)
	}
	if len(output.Notifications) != 1 || output.Notifications[0].Title != "New sale" {
		t.Errorf("Expected the newest notification first, got %+v", output.Notifications)
	}
	if output.Unread != 2 || !output.Connected {
		t.Errorf("Unexpected status: unread=%d connected=%v", output.Unread, output.Connected)
	}

	_, marked, err := tools.MarkNotificationsRead(ctx, nil, MarkNotificationsReadInput{})
	if err != nil {
		t.Fatalf("MarkNotificationsRead failed: %v", err)
	}
	if marked.Marked != 2 {
		t.Errorf("Expected 2 marked, got %d", marked.Marked)
	}

	_, output, err = tools.GetNotifications(ctx, nil, GetNotificationsInput{UnreadOnly: true})
	if err != nil {
		t.Fatalf("GetNotifications failed: %v", err)
	}
	if len(output.Notifications) != 0 || output.Unread != 0 {
		t.Errorf("Expected nothing unread, got %+v", output)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
