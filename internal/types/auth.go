package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserAuth represents the core user entity used by the auth flow.
type UserAuth struct {
	ID        string    `json:"id"`    // Unique identifier (UUID).
	Email     string    `json:"email"` // Unique email address used for login.
	Password  string    `json:"-"`     // Hashed password (never exposed).
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthUser is the identity consumed by guards and the auth state
// store. Only id and email are ever read from the session token.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Claims represents the custom claims included in the JWT access token.
type Claims struct {
	UserID               string `json:"uid"` // Custom claim for User ID.
	Email                string `json:"eml"` // Custom claim for Email.
	jwt.RegisteredClaims        // Embed standard claims (ExpiresAt, IssuedAt, Subject, etc.).
}

// Session event kinds.
const (
	SessionSignedIn  = "signed_in"
	SessionSignedOut = "signed_out"
	SessionRefreshed = "refreshed"
)

// SessionEvent is published on the auth event bus whenever a session
// is created or destroyed.
type SessionEvent struct {
	Kind string    // SessionSignedIn, SessionSignedOut or SessionRefreshed
	User *AuthUser // nil on signed_out
	At   time.Time
}
