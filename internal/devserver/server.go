// Package devserver is an in-memory stand-in for the retail backend. It
// serves the auth, resource and notification endpoints the client talks to
// and lets tests revoke tokens and push frames.
package devserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/eshaffer321/retail-go/internal/types"
)

const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
	DefaultPageSize   = 50
)

// Resources served under the API root
var Resources = []string{"customers", "products", "suppliers", "sales", "expenses"}

// Options configures a Server
type Options struct {
	// Secret signs issued tokens. A fixed development secret is used when empty.
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// NotifyOnCreate pushes a new_notification frame whenever a resource is
	// created.
	NotifyOnCreate bool

	Logger types.Logger
}

type account struct {
	password string
	user     types.User
}

// Server is the development backend
type Server struct {
	secret         []byte
	accessTTL      time.Duration
	refreshTTL     time.Duration
	notifyOnCreate bool
	logger         types.Logger
	router         *gin.Engine
	upgrader       websocket.Upgrader
	now            func() time.Time

	mu             sync.RWMutex
	accounts       map[string]account
	nextUserID     int64
	accessVersion  int
	refreshVersion int
	refreshCalls   int
	collections    map[string]*collection
	notificationID int64
	unread         int

	hub *hub
}

// New creates a server with an "admin"/"admin" account
func New(opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("retail-devserver-secret")
	}
	if opts.AccessTTL == 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = DefaultRefreshTTL
	}

	s := &Server{
		secret:         opts.Secret,
		accessTTL:      opts.AccessTTL,
		refreshTTL:     opts.RefreshTTL,
		notifyOnCreate: opts.NotifyOnCreate,
		logger:         opts.Logger,
		now:            time.Now,
		accounts:       make(map[string]account),
		collections:    make(map[string]*collection),
		hub:            newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, name := range Resources {
		s.collections[name] = newCollection()
	}
	s.AddUser("admin", "admin", types.User{Email: "admin@example.com", FirstName: "Admin", Role: "admin"})

	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler. It serves both /api/... and the bare
// paths so base URLs with or without the /api prefix work.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	for _, prefix := range []string{"", "/api"} {
		g := r.Group(prefix)
		g.POST("/auth/login/", s.login)
		g.POST("/auth/refresh/", s.refresh)
		g.POST("/auth/token/refresh/", s.refresh)

		authed := g.Group("", s.requireAccess())
		authed.GET("/auth/me/", s.me)
		for _, name := range Resources {
			s.mountCollection(authed, name)
		}
	}

	r.GET("/ws/notifications/", s.serveNotifications)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if s.logger != nil {
			s.logger.Debug("Request served",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", c.Writer.Status(),
				"duration", time.Since(start))
		}
	}
}

// AddUser registers an account and returns its user record
func (s *Server) AddUser(username, password string, u types.User) types.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	u.ID = s.nextUserID
	u.Username = username
	if u.Role == "" {
		u.Role = "staff"
	}
	s.accounts[username] = account{password: password, user: u}
	return u
}

// RevokeAccessTokens invalidates every access token issued so far. Refresh
// tokens keep working.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	s.accessVersion++
	s.mu.Unlock()
}

// RevokeRefreshTokens invalidates every refresh token issued so far
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refreshVersion++
	s.mu.Unlock()
}

// RefreshCalls returns how many refresh requests were received
func (s *Server) RefreshCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshCalls
}

// Len returns the number of items in a resource collection
func (s *Server) Len(resource string) int {
	col, ok := s.collections[resource]
	if !ok {
		return 0
	}
	return col.len()
}
