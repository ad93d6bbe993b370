package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Session bundles an SDKClient with a token cache and identity tracker
// into a ready-to-use authenticated client. All calls flow through the
// Transport, so bearer attachment and silent refresh are automatic.
type Session struct {
	client     *SDKClient
	cache      *SessionCache
	identity   *IdentityState
	httpClient *http.Client
}

// NewSession wires the pieces together. The store decides where the token
// pair persists between runs.
func NewSession(client *SDKClient, store SecretStore) *Session {
	cache := NewSessionCache(store)
	identity := NewIdentityState(cache)

	return &Session{
		client:   client,
		cache:    cache,
		identity: identity,
		httpClient: &http.Client{
			Transport: NewTransport(nil, client, cache, identity),
			Timeout:   client.HTTPClient.Timeout,
		},
	}
}

// Login authenticates and persists the issued pair.
func (s *Session) Login(ctx context.Context, identifier, secret string) error {
	resp, err := s.client.Login(ctx, identifier, secret)
	if err != nil {
		return err
	}
	return s.identity.SetTokens(ctx, resp.AccessToken, resp.RefreshToken)
}

// Logout drops the stored pair and resets the principal.
func (s *Session) Logout(ctx context.Context) error {
	return s.identity.Clear(ctx)
}

// Identity exposes the principal tracker for Current and Subscribe.
func (s *Session) Identity() *IdentityState {
	return s.identity
}

// HTTPClient returns the underlying client for arbitrary authenticated
// requests against the service.
func (s *Session) HTTPClient() *http.Client {
	return s.httpClient
}

// GetUserInfo fetches the authenticated user's profile.
func (s *Session) GetUserInfo(ctx context.Context) (*UserInfoResponse, error) {
	var out UserInfoResponse
	if err := s.getJSON(ctx, "/v1/userinfo", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRoles returns every role. Requires the Admin role.
func (s *Session) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	var out []RoleResponse
	if err := s.getJSON(ctx, "/v1/roles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRole adds a new role. Requires the Admin role.
func (s *Session) CreateRole(ctx context.Context, name string) (*GeneralResponse, error) {
	var out GeneralResponse
	err := s.postJSON(ctx, "/v1/roles", CreateRoleRequest{Name: name}, &out, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns every user with its role. Requires the Admin role.
func (s *Session) ListUsers(ctx context.Context) ([]UserSummary, error) {
	var out []UserSummary
	if err := s.getJSON(ctx, "/v1/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangeUserRole moves a user onto a role. Requires the Admin role.
func (s *Session) ChangeUserRole(ctx context.Context, email, role string) (*GeneralResponse, error) {
	var out GeneralResponse
	err := s.postJSON(ctx, "/v1/users/role", ChangeRoleRequest{
		Email: email,
		Role:  role,
	}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.url(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return decodeJSON(resp, target, http.StatusOK)
}

func (s *Session) postJSON(
	ctx context.Context,
	path string,
	body any,
	target any,
	expectedStatus int,
) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.url(path), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return decodeJSON(resp, target, expectedStatus)
}
