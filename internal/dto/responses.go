package dto

import "time"

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
	Created     bool      `json:"created,omitempty"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	Plan          string `json:"plan"`
	EmailVerified bool   `json:"email_verified"`
	IsAdmin       bool   `json:"is_admin"`
}

// IdentityResponse is the identity resolved from the bearer credential
type IdentityResponse struct {
	ID         string `json:"id"`
	Plan       string `json:"plan"`
	IsAdmin    bool   `json:"is_admin"`
	AuthMethod string `json:"auth_method"`
}

// ProfileResponse represents the stored profile of the caller
type ProfileResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	Plan          string    `json:"plan"`
	EmailVerified bool      `json:"email_verified"`
	HasPassword   bool      `json:"has_password"`
	Providers     []string  `json:"providers"`
	CreatedAt     time.Time `json:"created_at"`
}

// APIKeyResponse represents an API key without its secret
type APIKeyResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Prefix       string     `json:"prefix"`
	Permissions  []string   `json:"permissions"`
	RequestCount int64      `json:"request_count"`
	LastUsedAt   *time.Time `json:"last_used_at"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CreatedAPIKeyResponse carries the raw key. It is returned once.
type CreatedAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

// ResourceUsageResponse is one counter of a usage report
type ResourceUsageResponse struct {
	Resource string  `json:"resource"`
	Used     int64   `json:"used"`
	Limit    int64   `json:"limit"`
	Percent  float64 `json:"percent"`
	Unit     string  `json:"unit"`
}

// UsageResponse represents usage for the active period
type UsageResponse struct {
	Plan        string                  `json:"plan"`
	Period      string                  `json:"period"`
	PeriodStart time.Time               `json:"period_start"`
	PeriodEnd   time.Time               `json:"period_end"`
	Resources   []ResourceUsageResponse `json:"resources"`
}

// ConsumeUsageResponse confirms a reservation
type ConsumeUsageResponse struct {
	Resource     string `json:"resource"`
	Amount       int64  `json:"amount"`
	CurrentUsage int64  `json:"current_usage"`
}

// QuotaDetails accompanies a quota_exceeded error
type QuotaDetails struct {
	Resource     string `json:"resource"`
	CurrentUsage int64  `json:"current_usage"`
	Limit        int64  `json:"limit"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
