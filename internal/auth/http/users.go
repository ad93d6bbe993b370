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

type UsersHandler struct {
	RoleService *service.RoleService
}

// HandleList godoc
//
//	@Summary		List users
//	@Description	Returns every user with its role. Requires the Admin role.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		authsdk.UserSummary	"userId, username, email, displayName, role"
//	@Failure		401	{object}	authsdk.APIError	"Invalid or missing access token"
//	@Failure		403	{string}	string				"insufficient_scope"
//	@Router			/v1/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users, err := h.RoleService.ListUsersWithRoles(ctx)
	if err != nil {
		log.Error("failed to list users", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := make([]authsdk.UserSummary, len(users))
	for i, u := range users {
		out[i] = authsdk.UserSummary{
			UserID:      u.ID,
			Username:    u.Username,
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Role:        u.RoleName,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleChangeRole godoc
//
//	@Summary		Change a user's role
//	@Description	Moves the user identified by email onto the named role. Requires the Admin role.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ChangeRoleRequest	true	"Email and role"
//	@Success		200		{object}	authsdk.GeneralResponse		"succeeded, message"
//	@Failure		400		{object}	authsdk.APIError			"error, error_description"
//	@Failure		404		{object}	authsdk.APIError			"error, error_description"
//	@Router			/v1/users/role [post].
func (h *UsersHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.TrimSpace(req.Role)
	if req.Email == "" || req.Role == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.RoleService.ChangeUserRole(ctx, req.Email, req.Role); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrRoleNotFound):
			authsdk.ErrNotFound.WriteError(w)
		default:
			log.Error("failed to change user role", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.GeneralResponse{
		Succeeded: true,
		Message:   "role updated",
	})
}
