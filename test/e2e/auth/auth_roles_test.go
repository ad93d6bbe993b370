package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harborauth/harbor/pkg/authsdk"
)

// TestRoleAdministration verifies role listing, creation and assignment
// through an admin session.
func TestRoleAdministration(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	seedAdmin(t, client)
	admin := performLogin(t, client, adminEmail, adminPassword)

	t.Run("built-in roles exist", func(t *testing.T) {
		roles, err := admin.ListRoles(ctx)
		require.NoError(t, err)

		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = role.Name
		}
		require.ElementsMatch(t, []string{"Admin", "Basic"}, names)
	})

	t.Run("create role", func(t *testing.T) {
		resp, err := admin.CreateRole(ctx, "Auditor")
		require.NoError(t, err)
		require.True(t, resp.Succeeded)

		roles, err := admin.ListRoles(ctx)
		require.NoError(t, err)
		require.Len(t, roles, 3)
		t.Logf("Role created, %d roles total", len(roles))
	})

	t.Run("promote a user", func(t *testing.T) {
		registerUser(t, client, "alice", "alice@example.com", "s3cret-pass")

		resp, err := admin.ChangeUserRole(ctx, "alice@example.com", "Admin")
		require.NoError(t, err)
		require.True(t, resp.Succeeded)

		// The promoted user's next session carries the new role.
		alice := performLogin(t, client, "alice@example.com", "s3cret-pass")
		info, err := alice.GetUserInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, "Admin", info.Role)
		t.Logf("User promoted to %s", info.Role)
	})

	t.Run("list users with roles", func(t *testing.T) {
		users, err := admin.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
	})
}

// TestAdminEndpointsForbiddenForBasicRole verifies that administration
// endpoints reject authenticated users without the Admin role.
func TestAdminEndpointsForbiddenForBasicRole(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := context.Background()

	seedAdmin(t, client)
	registerUser(t, client, "bob", "bob@example.com", "s3cret-pass")
	bob := performLogin(t, client, "bob@example.com", "s3cret-pass")

	_, err := bob.ListRoles(ctx)
	assertForbidden(t, err, "Basic user listing roles")

	_, err = bob.CreateRole(ctx, "Sneaky")
	assertForbidden(t, err, "Basic user creating a role")

	_, err = bob.ListUsers(ctx)
	assertForbidden(t, err, "Basic user listing users")

	_, err = bob.ChangeUserRole(ctx, "bob@example.com", "Admin")
	assertForbidden(t, err, "Basic user promoting itself")

	// The profile endpoint stays open to any authenticated user.
	info, err := bob.GetUserInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "bob", info.Username)
	t.Logf("Basic role correctly fenced off from administration")
}
