package domain

import "time"

// User represents an account in the system
type User struct {
	ID            string    `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	PasswordHash  *string   `json:"-" db:"password_hash"` // nil for OAuth-only accounts
	DisplayName   string    `json:"display_name" db:"display_name"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	Plan          Plan      `json:"plan" db:"plan"`
	IsAdmin       bool      `json:"is_admin" db:"is_admin"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// HasPassword reports whether the account can log in with local credentials
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Identity is the verified caller resolved from a bearer credential
type Identity struct {
	UserID    string
	Plan      Plan
	IsAdmin   bool
	TokenID   string // empty for API keys
	ExpiresAt time.Time
	Method    AuthMethod
	APIKeyID  string

	// Permissions is nil for session tokens, which carry every permission
	Permissions []string
}

// Can reports whether the identity holds a permission
func (i *Identity) Can(permission string) bool {
	if i.Method != AuthMethodAPIKey {
		return true
	}
	for _, p := range i.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// AuthMethod tells how an Identity was resolved
type AuthMethod string

const (
	AuthMethodSession AuthMethod = "session"
	AuthMethodAPIKey  AuthMethod = "api_key"
)

// OAuthProvider names an external identity provider
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "google"
	ProviderGitHub OAuthProvider = "github"
)

// ParseOAuthProvider resolves a path segment into a known provider
func ParseOAuthProvider(s string) (OAuthProvider, bool) {
	switch OAuthProvider(s) {
	case ProviderGoogle, ProviderGitHub:
		return OAuthProvider(s), true
	default:
		return "", false
	}
}

// OAuthIdentity links an external provider account to a User
type OAuthIdentity struct {
	ID         string        `json:"id" db:"id"`
	UserID     string        `json:"user_id" db:"user_id"`
	Provider   OAuthProvider `json:"provider" db:"provider"`
	ExternalID string        `json:"external_id" db:"external_id"`
	Email      *string       `json:"email" db:"email"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// APIKey is a long-lived credential owned by a user
type APIKey struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	Name         string     `json:"name" db:"name"`
	Prefix       string     `json:"prefix" db:"prefix"`
	KeyHash      string     `json:"-" db:"key_hash"`
	Permissions  []string   `json:"permissions" db:"permissions"`
	RequestCount int64      `json:"request_count" db:"request_count"`
	LastUsedAt   *time.Time `json:"last_used_at" db:"last_used_at"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// APIKeyOwner is an API key joined with the plan snapshot of its owner
type APIKeyOwner struct {
	Key     APIKey
	Plan    Plan
	IsAdmin bool
}
