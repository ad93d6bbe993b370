package authsdk

import (
	"context"
	"sync"

	"github.com/harborauth/harbor/pkg/jwtx"
)

// Principal is the identity derived from the cached access token. The
// zero value is the anonymous principal.
type Principal struct {
	ID          string
	Username    string
	Email       string
	DisplayName string
	Role        string

	Authenticated bool
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal {
	return Principal{}
}

// IdentityState tracks who the current user is, derived lazily from the
// token pair in the SessionCache. The access token is decoded without
// signature verification: the client holds no signing key, and the server
// remains the authority on whether the token is actually valid.
type IdentityState struct {
	cache *SessionCache

	mu      sync.Mutex
	current Principal
	fresh   bool
	subs    map[int]chan Principal
	nextSub int
}

// NewIdentityState wraps a SessionCache.
func NewIdentityState(cache *SessionCache) *IdentityState {
	return &IdentityState{
		cache: cache,
		subs:  make(map[int]chan Principal),
	}
}

// Current returns the principal for the cached access token, recomputing
// it only when the underlying tokens have changed since the last call.
func (s *IdentityState) Current(ctx context.Context) Principal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fresh {
		s.current = s.computeLocked(ctx)
		s.fresh = true
	}
	return s.current
}

// SetTokens stores a new token pair and publishes the resulting principal
// to subscribers. Passing two empty strings is equivalent to Clear.
func (s *IdentityState) SetTokens(ctx context.Context, access, refresh string) error {
	if access == "" && refresh == "" {
		return s.Clear(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.SetTokens(ctx, access, refresh); err != nil {
		return err
	}
	s.current = s.computeLocked(ctx)
	s.fresh = true
	s.publishLocked(s.current)
	return nil
}

// Clear drops the stored pair and publishes the anonymous principal. The
// store is cleared before anything is published so no subscriber ever
// observes an anonymous state while tokens remain on disk.
func (s *IdentityState) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Clear(ctx); err != nil {
		return err
	}
	s.current = Anonymous()
	s.fresh = true
	s.publishLocked(s.current)
	return nil
}

// Subscribe returns a channel that receives the principal each time it
// changes, and a cancel function that must be called to release it. The
// channel is buffered; a subscriber that falls behind misses intermediate
// states but always receives the latest.
func (s *IdentityState) Subscribe() (<-chan Principal, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Principal, 1)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// computeLocked derives the principal from the cached access token.
// Caller holds the lock.
func (s *IdentityState) computeLocked(ctx context.Context) Principal {
	access, _, err := s.cache.Tokens(ctx)
	if err != nil || access == "" {
		return Anonymous()
	}

	claims, err := jwtx.Decode(access)
	if err != nil {
		return Anonymous()
	}

	return Principal{
		ID:            claims.Subject,
		Username:      claims.Username,
		Email:         claims.Email,
		DisplayName:   claims.DisplayName,
		Role:          claims.Role,
		Authenticated: true,
	}
}

// publishLocked pushes p to every subscriber, dropping the stale value
// for any subscriber that has not drained its buffer. Caller holds the lock.
func (s *IdentityState) publishLocked(p Principal) {
	for _, ch := range s.subs {
		select {
		case ch <- p:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- p
		}
	}
}
