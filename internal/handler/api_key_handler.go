package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
	"go.uber.org/zap"
)

// APIKeyHandler handles API key management
type APIKeyHandler struct {
	keys   service.APIKeyService
	logger *zap.Logger
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(keys service.APIKeyService, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, logger: logger}
}

// Create issues a key and returns its secret once
// @Summary Create API key
// @Tags api-keys
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateAPIKeyRequest true "API key request"
// @Success 201 {object} dto.CreatedAPIKeyResponse
// @Router /api-keys [post]
func (h *APIKeyHandler) Create(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthenticated)
		return
	}

	var req dto.CreateAPIKeyRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	created, err := h.keys.Create(c.Request.Context(), identity.UserID, req.Name, req.Permissions)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreatedAPIKeyResponse{
		APIKeyResponse: toAPIKeyResponse(created.Key),
		Key:            created.RawKey,
	})
}

// List returns the caller's keys
// @Summary List API keys
// @Tags api-keys
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.APIKeyResponse
// @Router /api-keys [get]
func (h *APIKeyHandler) List(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthenticated)
		return
	}

	keys, err := h.keys.List(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := make([]dto.APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, toAPIKeyResponse(k))
	}
	c.JSON(http.StatusOK, resp)
}

// Revoke deactivates one of the caller's keys
// @Summary Revoke API key
// @Tags api-keys
// @Security BearerAuth
// @Param id path string true "Key id"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api-keys/{id} [delete]
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthenticated)
		return
	}

	if err := h.keys.Revoke(c.Request.Context(), identity.UserID, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
