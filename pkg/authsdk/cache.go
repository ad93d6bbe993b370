package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNoSession reports that no token pair is currently stored.
var ErrNoSession = errors.New("authsdk: no session stored")

// SecretStore persists an opaque string secretly. Implementations decide
// where and how; the file store in this package encrypts to disk, and
// tests use an in-memory map.
type SecretStore interface {
	// Load returns the stored blob, or ErrNoSession when nothing is stored.
	Load(ctx context.Context) (string, error)

	// Save replaces the stored blob.
	Save(ctx context.Context, blob string) error

	// Clear removes the stored blob. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// session is the JSON blob persisted through the SecretStore. Field
// matching on load is case-insensitive, so blobs written by older
// clients with different casing still parse.
type session struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

// SessionCache holds the current token pair, persisting every change
// through the backing SecretStore. An in-memory copy avoids re-reading
// (and re-decrypting) the store on every request.
type SessionCache struct {
	store SecretStore

	mu     sync.RWMutex
	cached *session
	loaded bool
}

// NewSessionCache wraps a SecretStore.
func NewSessionCache(store SecretStore) *SessionCache {
	return &SessionCache{store: store}
}

// Tokens returns the stored access and refresh tokens. Returns ErrNoSession
// when no pair is stored.
func (c *SessionCache) Tokens(ctx context.Context) (access, refresh string, err error) {
	c.mu.RLock()
	if c.loaded {
		s := c.cached
		c.mu.RUnlock()
		if s == nil {
			return "", "", ErrNoSession
		}
		return s.Token, s.Refresh, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have loaded while we upgraded the lock.
	if !c.loaded {
		if err := c.loadLocked(ctx); err != nil {
			return "", "", err
		}
	}
	if c.cached == nil {
		return "", "", ErrNoSession
	}
	return c.cached.Token, c.cached.Refresh, nil
}

// SetTokens stores a new token pair, replacing any previous one.
func (c *SessionCache) SetTokens(ctx context.Context, access, refresh string) error {
	s := &session{Token: access, Refresh: refresh}
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("authsdk: failed to encode session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Save(ctx, string(blob)); err != nil {
		return fmt.Errorf("authsdk: failed to persist session: %w", err)
	}
	c.cached = s
	c.loaded = true
	return nil
}

// Clear drops the stored pair. The store is cleared before the in-memory
// copy so a failed clear never leaves the cache claiming to be empty
// while the disk still holds tokens.
func (c *SessionCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("authsdk: failed to clear session store: %w", err)
	}
	c.cached = nil
	c.loaded = true
	return nil
}

// loadLocked reads the store into the in-memory copy. Caller holds the
// write lock.
func (c *SessionCache) loadLocked(ctx context.Context) error {
	blob, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			c.cached = nil
			c.loaded = true
			return nil
		}
		return err
	}

	var s session
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		// A corrupt blob is treated as no session rather than a hard
		// failure; the user just has to log in again.
		c.cached = nil
		c.loaded = true
		return nil
	}
	c.cached = &s
	c.loaded = true
	return nil
}
