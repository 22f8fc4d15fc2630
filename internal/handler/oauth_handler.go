package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/service"
	"go.uber.org/zap"
)

// OAuthHandler handles sign-in through external providers
type OAuthHandler struct {
	oauth  service.OAuthService
	logger *zap.Logger
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(oauth service.OAuthService, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, logger: logger}
}

// Begin redirects to the provider's consent page
// @Summary Start provider sign-in
// @Tags oauth
// @Param provider path string true "google or github"
// @Success 302
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/{provider} [get]
func (h *OAuthHandler) Begin(c *gin.Context) {
	authURL, err := h.oauth.BeginAuthorization(c.Request.Context(), c.Param("provider"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes provider sign-in and issues a session token
// @Summary Finish provider sign-in
// @Tags oauth
// @Produce json
// @Param provider path string true "google or github"
// @Param state query string true "State nonce"
// @Param code query string true "Authorization code"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /auth/{provider}/callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	if c.Query("error") != "" {
		respondError(c, h.logger, domain.NewValidationError("code", "the provider did not grant access"))
		return
	}

	result, err := h.oauth.HandleCallback(c.Request.Context(), c.Param("provider"), c.Query("state"), c.Query("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := toAuthResponse(result.User, result.Token)
	resp.Created = result.Created
	c.JSON(http.StatusOK, resp)
}
