package service

import "errors"

var (
	// ErrInvalidCredentials covers both unknown identifier and wrong
	// password so responses never reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrInvalidRefresh = errors.New("invalid_refresh_token")
	ErrUserExists     = errors.New("user_already_exists")
	ErrRoleExists     = errors.New("role_already_exists")
	ErrRoleNotFound   = errors.New("role_not_found")
	ErrUserNotFound   = errors.New("user_not_found")
)
