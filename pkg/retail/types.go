package retail

import (
	"time"

	"github.com/eshaffer321/retail-go/internal/auth"
	"github.com/eshaffer321/retail-go/internal/realtime"
	internalTypes "github.com/eshaffer321/retail-go/internal/types"
	"github.com/redis/go-redis/v9"
)

// User is the authenticated user record
type User = internalTypes.User

// Credentials is the access/refresh token pair plus the user it belongs to
type Credentials = internalTypes.Credentials

// CredentialStore persists credentials between runs
type CredentialStore = auth.Store

// RealtimeStatus is a snapshot of the notification channel
type RealtimeStatus = realtime.Status

// Notification channel states
const (
	RealtimeDisconnected = realtime.StateDisconnected
	RealtimeConnecting   = realtime.StateConnecting
	RealtimeConnected    = realtime.StateConnected
)

// NewMemoryStore keeps credentials for the life of the process
func NewMemoryStore() CredentialStore {
	return auth.NewMemoryStore()
}

// NewFileStore persists credentials as JSON at path
func NewFileStore(path string) CredentialStore {
	return auth.NewFileStore(path)
}

// NewRedisStore persists credentials in Redis under prefix. A zero ttl
// keeps them until logout.
func NewRedisStore(rdb redis.Cmdable, prefix string, ttl time.Duration) CredentialStore {
	return auth.NewRedisStore(rdb, prefix, ttl)
}

// Page is one page of a paginated list
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []*T    `json:"results"`
}

// HasNext reports whether another page follows
func (p *Page[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// Customer represents a store customer
type Customer struct {
	ID        int64      `json:"id,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Product represents an item in the catalogue
type Product struct {
	ID          int64      `json:"id,omitempty"`
	Name        string     `json:"name"`
	SKU         string     `json:"sku,omitempty"`
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	Cost        float64    `json:"cost,omitempty"`
	Stock       int        `json:"stock"`
	SupplierID  *int64     `json:"supplier,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Supplier represents a product supplier
type Supplier struct {
	ID          int64      `json:"id,omitempty"`
	Name        string     `json:"name"`
	ContactName string     `json:"contact_name,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Sale represents a completed or pending sale
type Sale struct {
	ID         int64      `json:"id,omitempty"`
	CustomerID *int64     `json:"customer,omitempty"`
	Date       Date       `json:"date"`
	Items      []SaleItem `json:"items,omitempty"`
	Total      float64    `json:"total"`
	Status     string     `json:"status,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// SaleItem is one line of a sale
type SaleItem struct {
	ProductID int64   `json:"product"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Expense represents a business expense
type Expense struct {
	ID          int64      `json:"id,omitempty"`
	Category    string     `json:"category"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description,omitempty"`
	Date        Date       `json:"date"`
	SupplierID  *int64     `json:"supplier,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Notification is a server-pushed notice
type Notification struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Level     string     `json:"level,omitempty"`
	Link      string     `json:"link,omitempty"`
	IsRead    bool       `json:"is_read"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// ListOptions filters and pages a list call
type ListOptions struct {
	Page     int
	PageSize int
	Search   string
	Ordering string

	// Filters are passed through as query parameters
	Filters map[string]string
}
