package domain

import "time"

// TokenPurpose is what a verification token may be used for
type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify-email"
	PurposeResetPassword TokenPurpose = "reset-password"
)

// VerificationToken is a single-use proof sent out of band.
// Only the SHA-256 hash of the token is persisted.
type VerificationToken struct {
	ID         string       `json:"id" db:"id"`
	UserID     string       `json:"user_id" db:"user_id"`
	TokenHash  string       `json:"-" db:"token_hash"`
	Purpose    TokenPurpose `json:"purpose" db:"purpose"`
	ExpiresAt  time.Time    `json:"expires_at" db:"expires_at"`
	ConsumedAt *time.Time   `json:"consumed_at" db:"consumed_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// IsExpired checks if the token is past its expiry at the given time
func (t VerificationToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// SessionToken is the issued bearer token with its expiry
type SessionToken struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int       `json:"expires_in"`
}

// RevocationReason records why a token or user was revoked
type RevocationReason string

const (
	ReasonLogout         RevocationReason = "logout"
	ReasonPasswordChange RevocationReason = "password_change"
	ReasonPasswordReset  RevocationReason = "password_reset"
	ReasonKeyRotation    RevocationReason = "key_rotation"
	ReasonAccountClaimed RevocationReason = "account_claimed"
)
