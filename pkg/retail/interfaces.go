package retail

import (
	"context"
)

// AuthService handles the login session
type AuthService interface {
	// Login exchanges username and password for a credential pair
	Login(ctx context.Context, username, password string) (*User, error)

	// Logout clears credentials locally and disconnects notifications.
	// No server call is made.
	Logout(ctx context.Context) error

	// CurrentUser returns the logged in user, or nil
	CurrentUser() *User

	// IsAuthenticated reports whether an access token is held
	IsAuthenticated() bool

	// Refresh obtains a new access token, joining any refresh in flight
	Refresh(ctx context.Context) error
}

// ResourceService is the CRUD surface shared by every business entity
type ResourceService[T any] interface {
	// List retrieves one page
	List(ctx context.Context, opts *ListOptions) (*Page[T], error)

	// ListAll follows pages until the last one
	ListAll(ctx context.Context, opts *ListOptions) ([]*T, error)

	// Get retrieves a single item by ID
	Get(ctx context.Context, id int64) (*T, error)

	// Create creates a new item
	Create(ctx context.Context, item *T) (*T, error)

	// Update replaces an existing item
	Update(ctx context.Context, id int64, item *T) (*T, error)

	// Patch updates only the given fields
	Patch(ctx context.Context, id int64, fields map[string]interface{}) (*T, error)

	// Delete deletes an item
	Delete(ctx context.Context, id int64) error
}

// CustomerService handles customers
type CustomerService = ResourceService[Customer]

// ProductService handles products
type ProductService = ResourceService[Product]

// SupplierService handles suppliers
type SupplierService = ResourceService[Supplier]

// SaleService handles sales
type SaleService = ResourceService[Sale]

// ExpenseService handles expenses
type ExpenseService = ResourceService[Expense]

// NotificationService keeps the in-memory notification list fed by the
// realtime channel
type NotificationService interface {
	// Connect opens the channel with the current access token
	Connect(ctx context.Context) error

	// Disconnect closes the channel without reconnecting
	Disconnect()

	// Status returns the channel state
	Status() RealtimeStatus

	// Items returns notifications, newest first
	Items() []Notification

	// UnreadCount returns the unread counter
	UnreadCount() int

	// MarkAllRead marks every item read and zeroes the counter
	MarkAllRead()

	// Subscribe registers fn for new notifications and returns a function
	// that removes it
	Subscribe(fn func(Notification)) func()
}
