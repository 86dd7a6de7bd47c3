package domain

import "time"

// Actor is the authenticated identity performing an action. It is decoded from
// a session token and passed explicitly to every use case.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsManager() bool {
	return a.Role == RoleManager
}

// Session is a signed token issued to a user after sign-up or sign-in.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
