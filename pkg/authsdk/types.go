package authsdk

// Wire types shared between the service handlers and the SDK client.

// ============================================================================
// Request Types
// ============================================================================

// LoginRequest carries the credentials for POST /v1/auth/login.
// The identifier may be a username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

// RefreshRequest carries the opaque refresh token for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RegisterRequest creates a new account via POST /v1/auth/register.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Password    string `json:"password"`
}

// CreateRoleRequest adds a role via POST /v1/roles.
type CreateRoleRequest struct {
	Name string `json:"name"`
}

// ChangeRoleRequest moves a user onto a role via POST /v1/users/role.
type ChangeRoleRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ============================================================================
// Response Types
// ============================================================================

// GeneralResponse is the envelope every mutating endpoint returns.
type GeneralResponse struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message,omitempty"`
}

// LoginResponse extends the general envelope with the issued token pair.
// Both login and refresh return this shape.
type LoginResponse struct {
	GeneralResponse

	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expiresIn,omitempty"` // seconds until the access token expires
}

// UserInfoResponse is returned by GET /v1/userinfo.
type UserInfoResponse struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role"`
}

// RoleResponse is one entry of GET /v1/roles.
type RoleResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserSummary is one entry of GET /v1/users.
type UserSummary struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role"`
}

// HealthChecks reports the status of critical dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
