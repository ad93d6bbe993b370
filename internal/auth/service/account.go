package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/harborauth/harbor/internal/auth/domain"
	"github.com/harborauth/harbor/internal/auth/store"
	"github.com/harborauth/harbor/pkg/cryptox"
	"github.com/harborauth/harbor/pkg/idx"
	"github.com/harborauth/harbor/pkg/jwtx"
	"github.com/harborauth/harbor/pkg/slogx"
)

// AccountService issues and rotates token pairs, and owns the account
// lifecycle (register, admin seed).
type AccountService struct {
	Store      store.Store
	Codec      *jwtx.Codec
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login verifies the identifier/secret pair and issues a fresh token pair.
// The identifier may be a username or an email; both match case-insensitively.
func (s *AccountService) Login(
	ctx context.Context,
	identifier, secret string,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	u, err := s.lookupUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash verification anyway so unknown identifiers
			// take roughly as long as bad passwords.
			_ = cryptox.VerifyPassword(secret, dummyHash)
			l.Info("login rejected: unknown identifier")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(secret, u.PasswordHash); err != nil {
		l.Info("login rejected: password mismatch", slog.String("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}

	return s.issuePair(ctx, u, role.Name, now)
}

// ExchangeRefresh rotates a refresh token: the presented opaque token is
// looked up by fingerprint, checked for expiry, and replaced with a new
// pair. The old token cannot be used again because the stored fingerprint
// is overwritten in the same step.
func (s *AccountService) ExchangeRefresh(
	ctx context.Context,
	refreshOpaque string,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("refresh rejected: unknown token")
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if rt.Expired(now) {
		l.Info("refresh rejected: expired", slog.String("user_id", rt.UserID))
		return nil, ErrInvalidRefresh
	}

	u, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Subject deleted since the token was issued.
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}

	return s.issuePair(ctx, u, role.Name, now)
}

// Register creates a new account on the default role.
func (s *AccountService) Register(
	ctx context.Context,
	username, email, displayName, password string,
) (domain.User, error) {
	l := slogx.FromContext(ctx)

	passHash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	role, err := s.Store.Roles().GetRoleByName(ctx, domain.RoleBasic)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrRoleNotFound
		}
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        strings.ToLower(email),
		DisplayName:  displayName,
		PasswordHash: passHash,
		RoleID:       role.ID,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, err
	}

	l.Info("user registered", slog.String("user_id", u.ID), slog.String("username", u.Username))
	return u, nil
}

// DefaultAdminEmail is the seeded administrator account.
const DefaultAdminEmail = "boss@admin.com"

// EnsureAdmin seeds the built-in roles and the administrator account.
// It is idempotent: running it against an initialised database is a no-op.
func (s *AccountService) EnsureAdmin(ctx context.Context, adminPassword string) error {
	l := slogx.FromContext(ctx)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, name := range []string{domain.RoleAdmin, domain.RoleBasic} {
			_, err := tx.Roles().GetRoleByName(ctx, name)
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err := tx.Roles().CreateRole(ctx, domain.Role{
				ID:   idx.New().String(),
				Name: name,
			}); err != nil {
				return err
			}
			l.Info("seeded role", slog.String("role", name))
		}

		if _, err := tx.Users().GetUserByEmail(ctx, DefaultAdminEmail); err == nil {
			return nil // already seeded
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		passHash, err := cryptox.HashPassword(adminPassword)
		if err != nil {
			return err
		}

		adminRole, err := tx.Roles().GetRoleByName(ctx, domain.RoleAdmin)
		if err != nil {
			return err
		}

		admin := domain.User{
			ID:           idx.New().String(),
			Username:     "boss",
			Email:        DefaultAdminEmail,
			DisplayName:  "Administrator",
			PasswordHash: passHash,
			RoleID:       adminRole.ID,
		}
		if err := tx.Users().CreateUser(ctx, admin); err != nil {
			return err
		}

		l.Info("seeded admin account", slog.String("user_id", admin.ID))
		return nil
	})
}

// Logout drops the user's refresh record so the session cannot be renewed.
func (s *AccountService) Logout(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().DeleteRefreshTokenByUser(ctx, userID)
}

// lookupUser resolves an identifier that may be an email or a username.
func (s *AccountService) lookupUser(ctx context.Context, identifier string) (domain.User, error) {
	if strings.Contains(identifier, "@") {
		return s.Store.Users().GetUserByEmail(ctx, identifier)
	}
	return s.Store.Users().GetUserByUsername(ctx, identifier)
}

// issuePair signs a new access token and rotates in a fresh refresh token
// for the user. The upsert keys on user_id so the previous record, if any,
// is replaced in the same statement.
func (s *AccountService) issuePair(
	ctx context.Context,
	u domain.User,
	roleName string,
	now time.Time,
) (*domain.TokenPair, error) {
	accessToken, err := s.Codec.Issue(u.ID, u.Email, roleName, u.DisplayName, s.AccessTTL, now)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize512)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		ExpiresAt: now.Add(s.RefreshTTL),
	}
	if err := s.Store.RefreshTokens().UpsertRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// dummyHash is a valid argon2 encoding used to keep the unknown-identifier
// path timing-comparable with a real verification.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
