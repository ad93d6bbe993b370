package http

import (
	"net/http"

	"github.com/harborauth/harbor/internal/auth/service"
	"github.com/harborauth/harbor/pkg/authsdk"
	"github.com/harborauth/harbor/pkg/httpx"
	"github.com/harborauth/harbor/pkg/slogx"
)

type UserInfoHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Get user information
//	@Description	Returns information about the authenticated user.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserInfoResponse	"userId, username, email, displayName, role"
//	@Failure		401	{object}	authsdk.APIError			"Invalid or missing access token"
//	@Failure		500	{object}	authsdk.APIError			"Internal server error"
//	@Router			/v1/userinfo [get].
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	user, err := h.UserService.GetUserByID(ctx, userID)
	if err != nil {
		log.Warn("failed to load user", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	role, err := h.UserService.GetRoleByID(ctx, user.RoleID)
	if err != nil {
		log.Warn("failed to load role", "user_id", userID, "role_id", user.RoleID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        role.Name,
	})
}
