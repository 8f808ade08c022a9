// Package model defines the data structures used throughout the application.
package model

import "time"

// Provider name constants. The provider_name column is a plain string so new
// providers can be added without a migration, but known values live here so
// the rest of the codebase doesn't scatter string literals.
const (
	ProviderGoogle    = "google"
	ProviderInstagram = "instagram"
)

// User represents a registered account.
//
// Email is the business key: it is unique, required, and never changes after
// creation. Users arrive either through email/password registration or
// through a first OAuth2 login — in the latter case PasswordHash stays empty
// and the account can only sign in through its linked providers.
//
// WHY A GENERATED USERNAME?
// The frontend displays a handle, but OAuth2 providers don't supply one
// (Google gives names, not usernames). So we synthesize one from the email's
// local part on creation and keep it unique with an integer suffix
// ("foo", "foo1", "foo2", …). See service.IdentityService.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Username     string    `json:"username"  db:"username"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName"  db:"last_name"`
	AvatarURL    string    `json:"avatarUrl" db:"avatar_url"`
	PasswordHash string    `json:"-"         db:"password_hash"` // empty for OAuth2-only accounts, never serialized
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName returns "First Last", falling back to the username when both
// name fields are empty (Instagram accounts only carry a username).
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// ProviderLink ties one external identity (provider + provider-assigned
// user ID) to exactly one local user.
//
// UNIQUENESS RULES (enforced by the database schema, not application code):
//   - (provider_name, provider_user_id) is unique system-wide: an external
//     identity maps to at most one local account
//   - (user_id, provider_name) is unique: a user holds at most one link
//     per provider
//
// The user owns its links — deleting a user cascades to its links.
type ProviderLink struct {
	ID             string     `json:"id"             db:"id"`
	UserID         string     `json:"-"              db:"user_id"`
	ProviderName   string     `json:"providerName"   db:"provider_name"`
	ProviderUserID string     `json:"providerUserId" db:"provider_user_id"`
	AccessToken    string     `json:"-"              db:"access_token"` // provider OAuth tokens are server-side only
	RefreshToken   string     `json:"-"              db:"refresh_token"`
	TokenExpiresAt *time.Time `json:"-"              db:"token_expires_at"`
	CreatedAt      time.Time  `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt"      db:"updated_at"`
}
