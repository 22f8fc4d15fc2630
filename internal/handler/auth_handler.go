package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	credentials service.CredentialService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(credentials service.CredentialService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		logger:      logger,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Create an unverified account and send the verification mail
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 201 {object} dto.UserInfo
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	user, err := h.credentials.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toUserInfo(user))
}

// Login handles user login
// @Summary Login user
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	user, token, err := h.credentials.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(user, token))
}

// Logout revokes the presented session token
// @Summary Logout user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthenticated)
		return
	}

	if err := h.credentials.Logout(c.Request.Context(), identity); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "logged out"})
}

// GetUser returns the identity carried by the credential
// @Summary Current identity
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.IdentityResponse
// @Router /auth/user [get]
func (h *AuthHandler) GetUser(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthenticated)
		return
	}

	c.JSON(http.StatusOK, dto.IdentityResponse{
		ID:         identity.UserID,
		Plan:       string(identity.Plan),
		IsAdmin:    identity.IsAdmin,
		AuthMethod: string(identity.Method),
	})
}

// GetProfile returns the stored profile
// @Summary Current user profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ProfileResponse
// @Router /auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthenticated)
		return
	}

	profile, err := h.credentials.GetProfile(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(profile))
}

// ChangePassword replaces the password and signs out every session
// @Summary Change password
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Change password request"
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/change-password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthenticated)
		return
	}

	var req dto.ChangePasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.credentials.ChangePassword(c.Request.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "password changed, all sessions were signed out"})
}

// ForgotPassword mails a reset link. The answer is the same whether or not
// the address is registered.
// @Summary Request password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Forgot password request"
// @Success 202 {object} dto.SuccessResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.credentials.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.SuccessResponse{Message: "if the address is registered, a reset link is on its way"})
}

// ResetPassword redeems a reset token
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset password request"
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.credentials.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "password reset"})
}

// VerifyEmail redeems a verification token
// @Summary Verify email address
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.VerifyEmailRequest true "Verify email request"
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.credentials.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "email verified"})
}

// ResendVerification sends a fresh verification mail to the signed-in user
// or to the address in the body
// @Summary Resend verification mail
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResendVerificationRequest false "Address when not signed in"
// @Success 202 {object} dto.SuccessResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	ctx := c.Request.Context()

	if identity, ok := IdentityFrom(c); ok {
		if err := h.credentials.ResendVerification(ctx, identity.UserID); err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusAccepted, dto.SuccessResponse{Message: "verification mail sent"})
		return
	}

	var req dto.ResendVerificationRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if req.Email == "" {
		respondError(c, h.logger, domain.NewValidationError("email", "this field is required"))
		return
	}

	if err := h.credentials.ResendVerificationByEmail(ctx, req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.SuccessResponse{Message: "if the address is registered, a verification mail is on its way"})
}
