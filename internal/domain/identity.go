package domain

import (
	"strings"
	"time"
)

// Identity is an authenticated principal as seen by the rest of the app
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// IdentityFields is a partial update of the provider-side identity profile.
// nil fields are left untouched.
type IdentityFields struct {
	DisplayName *string
	PhotoURL    *string
}

// User is the identity provider's stored account
type User struct {
	ID              string     `db:"id"`
	Email           *string    `db:"email"`
	PasswordHash    string     `db:"password_hash"`
	DisplayName     string     `db:"display_name"`
	PhotoURL        string     `db:"photo_url"`
	IsAnonymous     bool       `db:"is_anonymous"`
	IsActive        bool       `db:"is_active"`
	IsEmailVerified bool       `db:"is_email_verified"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	LastLoginAt     *time.Time `db:"last_login_at"`
}

// Identity projects the stored account to the public identity
func (u *User) Identity() *Identity {
	id := &Identity{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		IsAnonymous: u.IsAnonymous,
	}
	if u.Email != nil {
		id.Email = *u.Email
	}
	return id
}

// RefreshToken is a persisted refresh credential, stored by hash only
type RefreshToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// TokenClaims represents validated access token claims
type TokenClaims struct {
	UserID    string
	Email     string
	Anonymous bool
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// EmailLocalPart returns the part of an address before '@'
func EmailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
