package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
)

type (
	// FileStore persists the credentials of the last login to a JSON file
	// and serves the token to the realtime client
	FileStore struct {
		path   string
		maxAge time.Duration
		now    func() time.Time
		mu     sync.Mutex
	}

	// StoredAuth is the persisted form of a login
	StoredAuth struct {
		User      api.User `json:"user"`
		Token     string   `json:"token"`
		Timestamp int64    `json:"timestamp"`
	}
)

// DefaultMaxAge is how long stored credentials are kept
const DefaultMaxAge = 24 * time.Hour

var ErrCorruptStore = errors.New("credential store is corrupt")

// NewFileStore creates a FileStore backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
}

// WithClock returns a copy of the store that reads time from now
func (s *FileStore) WithClock(now func() time.Time) *FileStore {
	return &FileStore{
		path:   s.path,
		maxAge: s.maxAge,
		now:    now,
	}
}

// Save stores a login response stamped with the current time
func (s *FileStore) Save(res api.AuthResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(StoredAuth{
		User:      res.User,
		Token:     res.Token,
		Timestamp: s.now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Load returns the stored credentials. Data older than the maximum age or
// that cannot be decoded is removed and reported as ErrNoCredentials
func (s *FileStore) Load() (*StoredAuth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, err
	}

	var res StoredAuth
	if err := json.Unmarshal(data, &res); err != nil {
		_ = s.clear()
		return nil, fmt.Errorf("%w: %w: %w", ErrNoCredentials, ErrCorruptStore, err)
	}

	age := s.now().Sub(time.UnixMilli(res.Timestamp))
	if age > s.maxAge {
		_ = s.clear()
		return nil, ErrNoCredentials
	}
	return &res, nil
}

// Clear removes the stored credentials
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear()
}

// Token returns the stored token unless it is missing or expired
func (s *FileStore) Token() (string, error) {
	res, err := s.Load()
	if err != nil {
		return "", err
	}
	if IsExpired(res.Token, s.now()) {
		return "", ErrTokenExpired
	}
	return res.Token, nil
}

func (s *FileStore) clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
