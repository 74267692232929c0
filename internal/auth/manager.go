// Package auth owns the credential pair shared by every outbound request.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/eshaffer321/retail-go/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Manager holds the live credential pair. Requests read it; only login and the
// refresh routine write it.
type Manager struct {
	mu     sync.RWMutex
	creds  types.Credentials
	store  Store
	logger types.Logger
}

// NewManager creates a manager backed by store. A nil store keeps credentials in memory.
func NewManager(store Store, logger types.Logger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		store:  store,
		logger: logger,
	}
}

// Load restores credentials from the store
func (m *Manager) Load(ctx context.Context) error {
	creds, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	if creds == nil || creds.Empty() {
		return types.ErrNotAuthenticated
	}

	creds.ExpiresAt = TokenExpiry(creds.AccessToken)

	m.mu.Lock()
	m.creds = *creds
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("Credentials loaded", "user", usernameOf(creds.User))
	}
	return nil
}

// SetSession installs a fresh credential pair, as after login
func (m *Manager) SetSession(ctx context.Context, creds *types.Credentials) error {
	if creds == nil || creds.AccessToken == "" {
		return errors.New("no access token in credentials")
	}

	next := *creds
	next.ExpiresAt = TokenExpiry(next.AccessToken)

	m.mu.Lock()
	m.creds = next
	m.mu.Unlock()

	return errors.Wrap(m.store.Save(ctx, &next), "failed to persist credentials")
}

// UpdateAccessToken replaces only the access token, as after a refresh
func (m *Manager) UpdateAccessToken(ctx context.Context, token string) error {
	m.mu.Lock()
	m.creds.AccessToken = token
	m.creds.ExpiresAt = TokenExpiry(token)
	snapshot := m.creds
	m.mu.Unlock()

	return errors.Wrap(m.store.Save(ctx, &snapshot), "failed to persist refreshed token")
}

// Clear destroys the credential pair locally and in the store
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.creds = types.Credentials{}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("Credentials cleared")
	}
	return m.store.Clear(ctx)
}

// AccessToken returns the current access token, or "" if none
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.AccessToken
}

// RefreshToken returns the current refresh token, or "" if none
func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.RefreshToken
}

// User returns the logged-in user, if known
func (m *Manager) User() *types.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.creds.User == nil {
		return nil
	}
	u := *m.creds.User
	return &u
}

// ExpiresAt returns the access token expiry; zero when unknown
func (m *Manager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.ExpiresAt
}

// Credentials returns a copy of the current pair
func (m *Manager) Credentials() types.Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.creds
	if c.User != nil {
		u := *c.User
		c.User = &u
	}
	return c
}

// TokenExpiry reads the exp claim of a JWT without verifying it. The server is
// the authority on validity; this is informational only.
func TokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func usernameOf(u *types.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}
