package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("unit-test-signing-secret-0123456789")

func newTestCodec() *Codec {
	return NewCodec(testSecret, "harbor-test", []string{"harbor-api"})
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	c := newTestCodec()
	now := time.Now()

	token, err := c.Issue("user-1", "a@b.com", "Admin", "Alice", 30*time.Minute, now)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := c.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "a@b.com", claims.Email)
	require.Equal(t, "a@b.com", claims.Username)
	require.Equal(t, "Admin", claims.Role)
	require.Equal(t, "Alice", claims.DisplayName)
	require.Equal(t, "harbor-test", claims.Issuer)
	require.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, 2*time.Second)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	c := newTestCodec()
	minted := time.Now().Add(-31 * time.Minute)

	token, err := c.Issue("user-1", "a@b.com", "User", "Alice", 30*time.Minute, minted)
	require.NoError(t, err)

	_, err = c.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsTampered(t *testing.T) {
	t.Parallel()

	c := newTestCodec()

	token, err := c.Issue("user-1", "a@b.com", "User", "Alice", 30*time.Minute, time.Now())
	require.NoError(t, err)

	other := NewCodec([]byte("a-completely-different-secret-key"), "harbor-test", []string{"harbor-api"})
	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	minting := NewCodec(testSecret, "someone-else", []string{"harbor-api"})
	token, err := minting.Issue("user-1", "a@b.com", "User", "Alice", time.Minute, time.Now())
	require.NoError(t, err)

	_, err = newTestCodec().Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := newTestCodec().Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeIgnoresExpiry(t *testing.T) {
	t.Parallel()

	c := newTestCodec()
	minted := time.Now().Add(-2 * time.Hour)

	token, err := c.Issue("user-1", "a@b.com", "Admin", "Alice", 30*time.Minute, minted)
	require.NoError(t, err)

	// Verify refuses the expired token but Decode still yields the claims.
	_, err = c.Verify(token)
	require.ErrorIs(t, err, ErrExpired)

	claims, err := Decode(token)
	require.NoError(t, err)
	require.Equal(t, "Admin", claims.Role)
	require.Equal(t, "a@b.com", claims.Email)
}

func TestDecodeRejectsMissingClaims(t *testing.T) {
	t.Parallel()

	c := newTestCodec()

	// Role deliberately empty: the codec never mints this shape.
	token, err := c.Issue("user-1", "a@b.com", "", "Alice", time.Minute, time.Now())
	require.NoError(t, err)

	_, err = Decode(token)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Decode(strings.Repeat("x", 16))
	require.ErrorIs(t, err, ErrMalformed)
}
