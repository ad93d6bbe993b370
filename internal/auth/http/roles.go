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

type RolesHandler struct {
	RoleService *service.RoleService
}

// HandleList godoc
//
//	@Summary		List roles
//	@Description	Returns every role in the system. Requires the Admin role.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		authsdk.RoleResponse	"id, name"
//	@Failure		401	{object}	authsdk.APIError		"Invalid or missing access token"
//	@Failure		403	{string}	string					"insufficient_scope"
//	@Router			/v1/roles [get].
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	roles, err := h.RoleService.ListRoles(ctx)
	if err != nil {
		log.Error("failed to list roles", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := make([]authsdk.RoleResponse, len(roles))
	for i, role := range roles {
		out[i] = authsdk.RoleResponse{ID: role.ID, Name: role.Name}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate godoc
//
//	@Summary		Create role
//	@Description	Adds a new role. Names are unique case-insensitively. Requires the Admin role.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateRoleRequest	true	"Role name"
//	@Success		201		{object}	authsdk.GeneralResponse		"succeeded, message"
//	@Failure		400		{object}	authsdk.APIError			"error, error_description"
//	@Failure		409		{object}	authsdk.APIError			"error, error_description"
//	@Router			/v1/roles [post].
func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if _, err := h.RoleService.CreateRole(ctx, req.Name); err != nil {
		if errors.Is(err, service.ErrRoleExists) {
			authsdk.ErrConflict.WriteError(w)
			return
		}
		log.Error("failed to create role", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.GeneralResponse{
		Succeeded: true,
		Message:   "role created",
	})
}
