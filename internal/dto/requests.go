package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest represents a password change by a signed-in user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ForgotPasswordRequest asks for a password reset mail
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest redeems a reset token
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// VerifyEmailRequest redeems a verification token
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ResendVerificationRequest carries the address when the caller is not signed in
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

// CreateAPIKeyRequest represents a new API key request
type CreateAPIKeyRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	Permissions []string `json:"permissions"`
}

// ConsumeUsageRequest reserves quota before a quota-bound mutation
type ConsumeUsageRequest struct {
	Resource string `json:"resource" binding:"required"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
}

// ChangePlanRequest moves a user to another plan
type ChangePlanRequest struct {
	Plan string `json:"plan" binding:"required"`
}
