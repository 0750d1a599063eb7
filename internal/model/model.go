// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents an account stored on the server. The password hash never
// leaves the process: it is excluded from every JSON encoding.
type User struct {
	ID           int64      `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"` // unique, case-sensitive
	PasswordHash string     `json:"-"`
	IsAdmin      bool       `json:"isAdmin"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TouchLogin records a successful authentication.
func (u *User) TouchLogin(now time.Time) {
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// Public returns the response projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
	}
}

// PublicUser is what clients see of a user after register/login.
type PublicUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsAdmin   bool   `json:"isAdmin"`
	IsActive  bool   `json:"isActive"`
}

// Identity is the set of facts a token asserts about its holder.
type Identity struct {
	UserID  int64  `json:"userId"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// IdentityOf extracts the token identity from a user.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}
}

// Claims is the closed claim set carried by identity tokens.
// Timing fields (iat, exp) and the token id (jti) live in RegisteredClaims.
type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}
