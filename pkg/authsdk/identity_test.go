package authsdk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborauth/harbor/pkg/jwtx"
)

var testCodec = jwtx.NewCodec([]byte("test-secret-0123456789"), "harbor-test", []string{"harbor"})

func mintAccessToken(t *testing.T, subject, email, role string) string {
	t.Helper()

	token, err := testCodec.Issue(subject, email, role, "Test User", time.Hour, time.Now())
	require.NoError(t, err)
	return token
}

func TestIdentityState(t *testing.T) {
	ctx := context.Background()

	t.Run("starts anonymous", func(t *testing.T) {
		state := NewIdentityState(NewSessionCache(&memStore{}))

		p := state.Current(ctx)
		require.False(t, p.Authenticated)
		require.Empty(t, p.ID)
	})

	t.Run("set tokens derives the principal", func(t *testing.T) {
		state := NewIdentityState(NewSessionCache(&memStore{}))
		access := mintAccessToken(t, "user-1", "alice@example.com", "Basic")

		require.NoError(t, state.SetTokens(ctx, access, "refresh-1"))

		p := state.Current(ctx)
		require.True(t, p.Authenticated)
		require.Equal(t, "user-1", p.ID)
		require.Equal(t, "alice@example.com", p.Email)
		require.Equal(t, "Basic", p.Role)
		require.Equal(t, "Test User", p.DisplayName)
	})

	t.Run("recovers the principal from a persisted pair", func(t *testing.T) {
		store := &memStore{}
		access := mintAccessToken(t, "user-1", "alice@example.com", "Basic")
		require.NoError(t, NewSessionCache(store).SetTokens(ctx, access, "refresh-1"))

		// A fresh state over the same store, as after a process restart.
		state := NewIdentityState(NewSessionCache(store))
		p := state.Current(ctx)
		require.True(t, p.Authenticated)
		require.Equal(t, "user-1", p.ID)
	})

	t.Run("undecodable token stays anonymous", func(t *testing.T) {
		state := NewIdentityState(NewSessionCache(&memStore{}))

		require.NoError(t, state.SetTokens(ctx, "not.a.jwt", "refresh-1"))
		require.False(t, state.Current(ctx).Authenticated)
	})

	t.Run("clear resets to anonymous", func(t *testing.T) {
		store := &memStore{}
		state := NewIdentityState(NewSessionCache(store))
		access := mintAccessToken(t, "user-1", "alice@example.com", "Basic")
		require.NoError(t, state.SetTokens(ctx, access, "refresh-1"))

		require.NoError(t, state.Clear(ctx))
		require.False(t, state.Current(ctx).Authenticated)
		require.False(t, store.set, "tokens must not outlive the principal")
	})

	t.Run("empty pair is a clear", func(t *testing.T) {
		store := &memStore{}
		state := NewIdentityState(NewSessionCache(store))
		access := mintAccessToken(t, "user-1", "alice@example.com", "Basic")
		require.NoError(t, state.SetTokens(ctx, access, "refresh-1"))

		require.NoError(t, state.SetTokens(ctx, "", ""))
		require.False(t, state.Current(ctx).Authenticated)
		require.False(t, store.set)
	})
}

func TestIdentitySubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("receives changes", func(t *testing.T) {
		state := NewIdentityState(NewSessionCache(&memStore{}))
		ch, cancel := state.Subscribe()
		defer cancel()

		access := mintAccessToken(t, "user-1", "alice@example.com", "Basic")
		require.NoError(t, state.SetTokens(ctx, access, "refresh-1"))

		p := <-ch
		require.True(t, p.Authenticated)
		require.Equal(t, "user-1", p.ID)

		require.NoError(t, state.Clear(ctx))
		p = <-ch
		require.False(t, p.Authenticated)
	})

	t.Run("slow subscriber sees the latest state", func(t *testing.T) {
		state := NewIdentityState(NewSessionCache(&memStore{}))
		ch, cancel := state.Subscribe()
		defer cancel()

		// Two changes without the subscriber draining; the stale value is
		// dropped so only the latest remains.
		first := mintAccessToken(t, "user-1", "alice@example.com", "Basic")
		second := mintAccessToken(t, "user-2", "bob@example.com", "Admin")
		require.NoError(t, state.SetTokens(ctx, first, "refresh-1"))
		require.NoError(t, state.SetTokens(ctx, second, "refresh-2"))

		p := <-ch
		require.Equal(t, "user-2", p.ID)
		require.Len(t, ch, 0)
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		state := NewIdentityState(NewSessionCache(&memStore{}))
		ch, cancel := state.Subscribe()

		cancel()
		_, open := <-ch
		require.False(t, open)

		// Publishing after cancel must not panic.
		access := mintAccessToken(t, "user-1", "alice@example.com", "Basic")
		require.NoError(t, state.SetTokens(ctx, access, "refresh-1"))
	})

	t.Run("cancel is safe to call twice", func(t *testing.T) {
		state := NewIdentityState(NewSessionCache(&memStore{}))
		_, cancel := state.Subscribe()

		cancel()
		cancel()
	})
}
