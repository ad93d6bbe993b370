package domain

import "time"

type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Well-known role names seeded at startup.
const (
	RoleAdmin = "Admin"
	RoleBasic = "Basic"
)
