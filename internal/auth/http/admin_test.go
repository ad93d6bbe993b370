package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harborauth/harbor/internal/auth/service"
	"github.com/harborauth/harbor/pkg/authsdk"
)

func TestRoleManagement(t *testing.T) {
	h := newTestServer(t)
	ctx := context.Background()
	admin := adminSession(t, h)

	t.Run("lists the built-in roles", func(t *testing.T) {
		roles, err := admin.ListRoles(ctx)
		require.NoError(t, err)

		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = role.Name
		}
		require.ElementsMatch(t, []string{"Admin", "Basic"}, names)
	})

	t.Run("creates a role", func(t *testing.T) {
		resp, err := admin.CreateRole(ctx, "Auditor")
		require.NoError(t, err)
		require.True(t, resp.Succeeded)

		roles, err := admin.ListRoles(ctx)
		require.NoError(t, err)
		require.Len(t, roles, 3)
	})

	t.Run("duplicate role name conflicts case-insensitively", func(t *testing.T) {
		_, err := admin.CreateRole(ctx, "auditor")
		requireAPIError(t, err, http.StatusConflict, "conflict")
	})
}

func TestUserManagement(t *testing.T) {
	h := newTestServer(t)
	ctx := context.Background()
	admin := adminSession(t, h)

	_ = registerUser(t, h, "alice", "alice@example.com", "s3cret-pass")

	t.Run("lists users with their roles", func(t *testing.T) {
		users, err := admin.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)

		byEmail := make(map[string]authsdk.UserSummary, len(users))
		for _, u := range users {
			byEmail[u.Email] = u
		}
		require.Equal(t, "Admin", byEmail[service.DefaultAdminEmail].Role)
		require.Equal(t, "Basic", byEmail["alice@example.com"].Role)
	})

	t.Run("changes a user's role", func(t *testing.T) {
		resp, err := admin.ChangeUserRole(ctx, "alice@example.com", "Admin")
		require.NoError(t, err)
		require.True(t, resp.Succeeded)

		// The promotion shows up in a fresh token.
		login, err := h.client.Login(ctx, "alice@example.com", "s3cret-pass")
		require.NoError(t, err)

		claims, err := h.codec.Verify(login.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "Admin", claims.Role)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		_, err := admin.ChangeUserRole(ctx, "ghost@example.com", "Basic")
		requireAPIError(t, err, http.StatusNotFound, "not_found")
	})

	t.Run("unknown role is not found", func(t *testing.T) {
		_, err := admin.ChangeUserRole(ctx, "alice@example.com", "Imaginary")
		requireAPIError(t, err, http.StatusNotFound, "not_found")
	})
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	h := newTestServer(t)
	ctx := context.Background()
	seedAdmin(t, h)
	basic := registerUser(t, h, "bob", "bob@example.com", "s3cret-pass")

	assertForbidden := func(t *testing.T, err error) {
		t.Helper()
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	}

	t.Run("list roles", func(t *testing.T) {
		_, err := basic.ListRoles(ctx)
		assertForbidden(t, err)
	})

	t.Run("create role", func(t *testing.T) {
		_, err := basic.CreateRole(ctx, "Sneaky")
		assertForbidden(t, err)
	})

	t.Run("list users", func(t *testing.T) {
		_, err := basic.ListUsers(ctx)
		assertForbidden(t, err)
	})

	t.Run("change role", func(t *testing.T) {
		_, err := basic.ChangeUserRole(ctx, "bob@example.com", "Admin")
		assertForbidden(t, err)
	})

	t.Run("userinfo stays open to any authenticated user", func(t *testing.T) {
		info, err := basic.GetUserInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, "bob", info.Username)
	})
}
