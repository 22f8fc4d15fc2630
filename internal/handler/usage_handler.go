package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
	"go.uber.org/zap"
)

// UsageHandler exposes quota usage
type UsageHandler struct {
	usage  service.UsageService
	logger *zap.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usage service.UsageService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{usage: usage, logger: logger}
}

// Get returns the active period's counters against the plan's limits
// @Summary Current usage
// @Tags usage
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UsageResponse
// @Router /usage [get]
func (h *UsageHandler) Get(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthenticated)
		return
	}

	report, err := h.usage.CurrentUsage(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toUsageResponse(report))
}

// Consume reserves quota ahead of a quota-bound mutation
// @Summary Reserve quota
// @Tags usage
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ConsumeUsageRequest true "Reservation"
// @Success 200 {object} dto.ConsumeUsageResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /usage/consume [post]
func (h *UsageHandler) Consume(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthenticated)
		return
	}

	var req dto.ConsumeUsageRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	resource, ok := domain.ParseResource(req.Resource)
	if !ok {
		respondError(c, h.logger, domain.NewValidationError("resource", "unknown resource"))
		return
	}
	if permission, ok := service.ConsumePermission(resource); ok && !identity.Can(permission) {
		respondError(c, h.logger, fmt.Errorf("%w: missing permission %s", domain.ErrForbidden, permission))
		return
	}

	current, err := h.usage.TryConsume(c.Request.Context(), identity.UserID, resource, req.Amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConsumeUsageResponse{
		Resource:     string(resource),
		Amount:       req.Amount,
		CurrentUsage: current,
	})
}
