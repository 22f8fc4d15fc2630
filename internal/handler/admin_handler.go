package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
	"go.uber.org/zap"
)

// AdminHandler handles operator actions
type AdminHandler struct {
	credentials service.CredentialService
	logger      *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(credentials service.CredentialService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{credentials: credentials, logger: logger}
}

// ChangePlan moves a user to another plan
// @Summary Change a user's plan
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "User id"
// @Param request body dto.ChangePlanRequest true "Plan"
// @Success 200 {object} dto.UserInfo
// @Router /admin/users/{id}/plan [put]
func (h *AdminHandler) ChangePlan(c *gin.Context) {
	var req dto.ChangePlanRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	user, err := h.credentials.ChangePlan(c.Request.Context(), c.Param("id"), req.Plan)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toUserInfo(user))
}
