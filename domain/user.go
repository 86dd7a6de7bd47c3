package domain

import (
	"strings"
	"time"
)

// Role is the closed set of permission levels a user can hold.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts free-form input into a Role. Empty input yields RoleUser.
func ParseRole(value string) (Role, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return RoleUser, nil
	}
	role := Role(value)
	if !role.Valid() {
		return "", Invalid("role must be one of user, manager, admin")
	}
	return role, nil
}

// User represents an authenticated identity in the platform.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor returns the identity this user acts as.
func (u *User) Actor() Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

// NormalizeEmail trims and lowercases an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
