package domain

import "time"

type User struct {
	ID           string
	Username     string
	Email        string // stored lowercase, lookups are case-insensitive
	DisplayName  string
	PasswordHash string // argon2 encoded
	RoleID       string // Foreign key to roles table
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserWithRole is the read-model used by admin listings, joining the
// user row with its role name.
type UserWithRole struct {
	User

	RoleName string
}
