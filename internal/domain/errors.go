package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error taxonomy surfaced to callers. Anything else is an internal error.
var (
	ErrValidation          = errors.New("validation failed")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrWeakPassword        = errors.New("password does not meet policy")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailNotVerified    = errors.New("email address not verified")
	ErrUserNotFound        = errors.New("user not found")
	ErrTokenNotFound       = errors.New("token not found")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenAlreadyUsed    = errors.New("token already used")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrStateMismatch       = errors.New("oauth state mismatch")
	ErrOAuthExchangeFailed = errors.New("oauth code exchange failed")
	ErrOAuthProfileFetch   = errors.New("oauth profile fetch failed")
	ErrUnsupportedProvider = errors.New("unsupported oauth provider")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrAPIKeyNotFound      = errors.New("api key not found")
	ErrAPIKeyInactive      = errors.New("api key inactive")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
)

// ValidationError describes malformed input per field
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// QuotaExceededError is returned when a quota-bound mutation would pass the plan limit
type QuotaExceededError struct {
	Resource     Resource
	CurrentUsage int64
	Limit        int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: current usage %d, limit %d", e.Resource, e.CurrentUsage, e.Limit)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }
