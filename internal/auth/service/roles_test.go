package service

import (
	"context"
	"testing"
	"time"

	"github.com/harborauth/harbor/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newRoleFixture(t *testing.T) (*AccountService, *RoleService) {
	t.Helper()

	accounts := newAccountService(t)
	require.NoError(t, accounts.EnsureAdmin(context.Background(), "Admin123!"))
	return accounts, &RoleService{Store: accounts.Store}
}

func TestCreateRole(t *testing.T) {
	_, roles := newRoleFixture(t)
	ctx := context.Background()

	t.Run("creates new role", func(t *testing.T) {
		role, err := roles.CreateRole(ctx, "Moderator")
		require.NoError(t, err)
		require.NotEmpty(t, role.ID)
		require.Equal(t, "Moderator", role.Name)
	})

	t.Run("rejects duplicate name case-insensitively", func(t *testing.T) {
		_, err := roles.CreateRole(ctx, "moderator")
		require.ErrorIs(t, err, ErrRoleExists)
	})

	t.Run("list includes seeded and created roles", func(t *testing.T) {
		all, err := roles.ListRoles(ctx)
		require.NoError(t, err)

		names := make([]string, len(all))
		for i, r := range all {
			names[i] = r.Name
		}
		require.Contains(t, names, "Admin")
		require.Contains(t, names, "Basic")
		require.Contains(t, names, "Moderator")
	})
}

func TestChangeUserRole(t *testing.T) {
	accounts, roles := newRoleFixture(t)
	ctx := context.Background()

	_, err := accounts.Register(ctx, "erin", "erin@example.com", "Erin", "s3cret-pass")
	require.NoError(t, err)

	t.Run("moves user onto new role", func(t *testing.T) {
		require.NoError(t, roles.ChangeUserRole(ctx, "erin@example.com", "Admin"))

		pair, err := accounts.Login(ctx, "erin", "s3cret-pass")
		require.NoError(t, err)

		claims, err := accounts.Codec.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "Admin", claims.Role)
	})

	t.Run("unknown user", func(t *testing.T) {
		err := roles.ChangeUserRole(ctx, "ghost@example.com", "Admin")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("unknown role", func(t *testing.T) {
		err := roles.ChangeUserRole(ctx, "erin@example.com", "Wizard")
		require.ErrorIs(t, err, ErrRoleNotFound)
	})
}

func TestListUsersWithRoles(t *testing.T) {
	accounts, roles := newRoleFixture(t)
	ctx := context.Background()

	_, err := accounts.Register(ctx, "frank", "frank@example.com", "Frank", "s3cret-pass")
	require.NoError(t, err)

	users, err := roles.ListUsersWithRoles(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2) // seeded admin + frank

	byName := map[string]string{}
	for _, u := range users {
		byName[u.Username] = u.RoleName
	}
	require.Equal(t, "Admin", byName["boss"])
	require.Equal(t, "Basic", byName["frank"])
}

func TestHousekeepingDeletesExpired(t *testing.T) {
	accounts := newAccountService(t)
	ctx := context.Background()

	require.NoError(t, accounts.EnsureAdmin(ctx, "Admin123!"))
	_, err := accounts.Register(ctx, "gale", "gale@example.com", "Gale", "s3cret-pass")
	require.NoError(t, err)

	expiring := &AccountService{
		Store:      accounts.Store,
		Codec:      jwtx.NewCodec([]byte("test-secret-0123456789"), "harbor-test", []string{"harbor"}),
		AccessTTL:  accounts.AccessTTL,
		RefreshTTL: -time.Minute,
	}
	pair, err := expiring.Login(ctx, "gale", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, accounts.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx))

	_, err = accounts.ExchangeRefresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}
