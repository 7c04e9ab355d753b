package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
)

// StoredToken is the persisted login session.
type StoredToken struct {
	AccessToken string       `json:"accessToken"`
	User        *models.User `json:"user,omitempty"`
	SavedAt     time.Time    `json:"savedAt"`
}

// Expiry returns the token's exp claim, or the zero time when it has none.
func (t *StoredToken) Expiry() time.Time {
	return TokenExpiry(t.AccessToken)
}

// TokenStore persists the bearer token between invocations.
type TokenStore interface {
	Load() (*StoredToken, error) // Load returns nil, nil when no token is stored
	Save(token *StoredToken) error
	Clear() error
}

// FileTokenStore keeps the token in a JSON file readable only by the owner.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

// NewFileTokenStore creates a store at path, expanding a leading "~/".
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: shared.ExpandHome(path)}
}

// Path returns the resolved file location.
func (s *FileTokenStore) Path() string { return s.path }

func (s *FileTokenStore) Load() (*StoredToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token StoredToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

func (s *FileTokenStore) Save(token *StoredToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps the token in memory.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token *StoredToken
}

func (s *MemoryTokenStore) Load() (*StoredToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, nil
	}
	t := *s.token
	return &t, nil
}

func (s *MemoryTokenStore) Save(token *StoredToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := *token
	s.token = &t
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}

// tokenSource reads the current token from a store on every request so logins and 401
// clears take effect immediately.
type tokenSource struct {
	store TokenStore
	now   func() time.Time
}

// NewTokenSource returns an [oauth2.TokenSource] backed by store.
func NewTokenSource(store TokenStore) oauth2.TokenSource {
	return &tokenSource{store: store, now: time.Now}
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	stored, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.AccessToken == "" {
		return nil, fmt.Errorf("%w: run `reels auth login`", shared.ErrNotAuthenticated)
	}

	expiry := stored.Expiry()
	if !expiry.IsZero() && !s.now().Before(expiry) {
		return nil, fmt.Errorf("%w: expired at %s, run `reels auth login`", shared.ErrTokenExpired, expiry.Format(time.RFC3339))
	}

	return &oauth2.Token{AccessToken: stored.AccessToken, TokenType: "Bearer", Expiry: expiry}, nil
}

// TokenExpiry decodes the exp claim of a JWT without verifying its signature.
// Opaque tokens and tokens without exp yield the zero time.
func TokenExpiry(raw string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
