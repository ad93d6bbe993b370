package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/harborauth/harbor/internal/auth/domain"
	"github.com/harborauth/harbor/internal/auth/store"
	"github.com/harborauth/harbor/pkg/idx"
	"github.com/harborauth/harbor/pkg/slogx"
)

// RoleService owns role administration and user-role assignment.
type RoleService struct {
	Store store.Store
}

// CreateRole adds a new role. Names are unique case-insensitively.
func (s *RoleService) CreateRole(ctx context.Context, name string) (domain.Role, error) {
	l := slogx.FromContext(ctx)

	role := domain.Role{
		ID:   idx.New().String(),
		Name: name,
	}
	if err := s.Store.Roles().CreateRole(ctx, role); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Role{}, ErrRoleExists
		}
		return domain.Role{}, err
	}

	l.Info("role created", slog.String("role_id", role.ID), slog.String("name", name))
	return role, nil
}

// ListRoles returns every role in the system.
func (s *RoleService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListAll(ctx)
}

// ListUsersWithRoles returns every user joined with its role name.
func (s *RoleService) ListUsersWithRoles(ctx context.Context) ([]domain.UserWithRole, error) {
	return s.Store.Users().ListUsersWithRoles(ctx)
}

// ChangeUserRole moves the user identified by email onto the named role.
func (s *RoleService) ChangeUserRole(ctx context.Context, email, roleName string) error {
	l := slogx.FromContext(ctx)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		role, err := tx.Roles().GetRoleByName(ctx, roleName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrRoleNotFound
			}
			return err
		}

		if err := tx.Users().UpdateUserRole(ctx, u.ID, role.ID); err != nil {
			return err
		}

		l.Info("user role changed",
			slog.String("user_id", u.ID),
			slog.String("role", role.Name),
		)
		return nil
	})
}
