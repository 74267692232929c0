package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/eshaffer321/retail-go/internal/types"
	"github.com/pkg/errors"
)

// Fixed storage key names for the persisted credential pair
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	UserKey         = "user"
)

// Store persists the credential pair between process runs.
// Load returns (nil, nil) when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*types.Credentials, error)
	Save(ctx context.Context, creds *types.Credentials) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps credentials for the lifetime of the process only
type MemoryStore struct {
	mu    sync.RWMutex
	creds *types.Credentials
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored credentials
func (s *MemoryStore) Load(ctx context.Context) (*types.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return nil, nil
	}
	c := *s.creds
	return &c, nil
}

// Save replaces the stored credentials
func (s *MemoryStore) Save(ctx context.Context, creds *types.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if creds == nil {
		s.creds = nil
		return nil
	}
	c := *creds
	s.creds = &c
	return nil
}

// Clear drops the stored credentials
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

// FileStore persists credentials as a JSON document keyed by the fixed names
type FileStore struct {
	path string
	mu   sync.Mutex
}

// fileRecord is the on-disk layout
type fileRecord struct {
	AccessToken  string      `json:"access_token,omitempty"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         *types.User `json:"user,omitempty"`
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads credentials from disk
func (s *FileStore) Load(ctx context.Context) (*types.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read credentials file")
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal credentials")
	}

	return &types.Credentials{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		User:         rec.User,
	}, nil
}

// Save writes credentials to disk with restrictive permissions
func (s *FileStore) Save(ctx context.Context, creds *types.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if creds == nil {
		return errors.New("nil credentials")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.Wrap(err, "failed to create credentials directory")
	}

	data, err := json.MarshalIndent(fileRecord{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		User:         creds.User,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal credentials")
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write credentials file")
	}

	return nil
}

// Clear removes the credentials file
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove credentials file")
	}
	return nil
}
