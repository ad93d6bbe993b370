package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harborauth/harbor/pkg/authsdk"
)

// TestUserInfo verifies the authenticated profile endpoint through the
// session pipeline.
func TestUserInfo(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	seedAdmin(t, client)
	session := performLogin(t, client, adminEmail, adminPassword)

	info, err := session.GetUserInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "boss", info.Username)
	require.Equal(t, adminEmail, info.Email)
	require.Equal(t, "Admin", info.Role)
	require.NotEmpty(t, info.UserID)
	t.Logf("User info: %s (%s)", info.Username, info.Role)
}

// TestUserInfoRequiresToken verifies the endpoint rejects unauthenticated
// requests with an RFC 6750 challenge.
func TestUserInfoRequiresToken(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	resp, err := http.Get(baseURL + "/v1/userinfo")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), `Bearer error="invalid_token"`)
}

// TestSilentRefresh verifies the client pipeline end to end: a session
// whose access token has been invalidated silently exchanges its refresh
// token and retries without surfacing the 401, and its identity state
// follows along.
func TestSilentRefresh(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	seedAdmin(t, client)
	session := performLogin(t, client, adminEmail, adminPassword)

	principal := session.Identity().Current(ctx)
	require.True(t, principal.Authenticated)
	require.Equal(t, adminEmail, principal.Email)

	// Swap in a broken access token while keeping the refresh token. The
	// next call must recover via the refresh exchange.
	login, err := client.Login(ctx, adminEmail, adminPassword)
	require.NoError(t, err)
	require.NoError(t, session.Identity().SetTokens(ctx, "tampered.access.token", login.RefreshToken))

	info, err := session.GetUserInfo(ctx)
	require.NoError(t, err, "Pipeline should refresh and retry transparently")
	require.Equal(t, "boss", info.Username)

	principal = session.Identity().Current(ctx)
	require.True(t, principal.Authenticated, "Identity should be rebuilt from the refreshed token")
	require.Equal(t, adminEmail, principal.Email)
	t.Logf("Silent refresh successful")
}

// TestLogout verifies that logging out resets the identity and that
// subsequent authenticated calls fail.
func TestLogout(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	seedAdmin(t, client)
	session := performLogin(t, client, adminEmail, adminPassword)

	require.NoError(t, session.Logout(ctx))
	require.False(t, session.Identity().Current(ctx).Authenticated)

	_, err := session.GetUserInfo(ctx)
	assertUnauthorized(t, err, "Authenticated call after logout")
}
