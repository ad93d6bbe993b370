package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/harborauth/harbor/internal/auth/service"
	"github.com/harborauth/harbor/pkg/authsdk"
	"github.com/harborauth/harbor/pkg/httpx"
	"github.com/harborauth/harbor/pkg/slogx"
)

// AuthHandler serves the credential endpoints under /v1/auth.
type AuthHandler struct {
	AccountService *service.AccountService
	AdminPassword  string
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Exchanges an identifier (username or email) and secret for a token pair.
//	@Description	Unknown identifiers and wrong passwords fail identically.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"succeeded, accessToken, refreshToken, expiresIn"
//	@Failure		400		{object}	authsdk.APIError		"error, error_description"
//	@Failure		401		{object}	authsdk.APIError		"error, error_description"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.Secret == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.AccountService.Login(ctx, req.Identifier, req.Secret)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			authsdk.ErrInvalidCredentials.WriteError(w)
			return
		}
		log.Error("login failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		GeneralResponse: authsdk.GeneralResponse{Succeeded: true},
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		ExpiresIn:       int(pair.ExpiresIn.Seconds()),
	})
}

// HandleRefresh godoc
//
//	@Summary		Refresh token exchange
//	@Description	Rotates a refresh token: the presented token is consumed and a new pair is issued.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.LoginResponse	"succeeded, accessToken, refreshToken, expiresIn"
//	@Failure		400		{object}	authsdk.APIError		"error, error_description"
//	@Failure		401		{object}	authsdk.APIError		"error, error_description"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if strings.TrimSpace(req.RefreshToken) == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.AccountService.ExchangeRefresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			authsdk.ErrInvalidGrant.WriteError(w)
			return
		}
		log.Error("refresh exchange failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		GeneralResponse: authsdk.GeneralResponse{Succeeded: true},
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		ExpiresIn:       int(pair.ExpiresIn.Seconds()),
	})
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates a new account on the default role.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"Account details"
//	@Success		201		{object}	authsdk.GeneralResponse	"succeeded, message"
//	@Failure		400		{object}	authsdk.APIError		"error, error_description"
//	@Failure		409		{object}	authsdk.APIError		"error, error_description"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if !strings.Contains(req.Email, "@") {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	_, err := h.AccountService.Register(ctx, req.Username, req.Email, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			authsdk.ErrConflict.WriteError(w)
			return
		}
		log.Error("registration failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.GeneralResponse{
		Succeeded: true,
		Message:   "account created",
	})
}

// HandleSeedAdmin godoc
//
//	@Summary		Seed admin account
//	@Description	Creates the built-in roles and administrator account if they do not exist.
//	@Description	Safe to call repeatedly; an initialised system is left untouched.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.GeneralResponse	"succeeded, message"
//	@Failure		500	{object}	authsdk.APIError		"error, error_description"
//	@Router			/v1/auth/admin [post].
func (h *AuthHandler) HandleSeedAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.AccountService.EnsureAdmin(ctx, h.AdminPassword); err != nil {
		log.Error("admin seed failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.GeneralResponse{
		Succeeded: true,
		Message:   "admin account ready",
	})
}
