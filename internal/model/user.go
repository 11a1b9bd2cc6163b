package model

import "time"

// Roles assignable to a user. New accounts default to RoleUser; only admins
// may pass the admin gate.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// ValidRole reports whether the given role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// User mirrors the 'users' table. PasswordHash never leaves the server;
// handlers map users to response DTOs without it.
type User struct {
	ID           uint64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate describes a partial update to a user row. Nil fields are left
// unchanged.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *string
}
