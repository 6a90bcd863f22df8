package domain

import "time"

// User is owned by the identity provider; movies and ratings only reference it.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID   string
	Username string
}

// Authenticated reports whether the principal carries an identity.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}
