package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
	"go.uber.org/zap"
)

const (
	identityKey = "identity"
	userIDKey   = "user_id"
)

// AuthMiddleware resolves the bearer credential and adds the identity to context
func AuthMiddleware(auth service.Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer, err := bearerToken(c)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		identity, err := auth.Validate(c.Request.Context(), bearer)
		if err != nil {
			respondAuthError(c, logger, err)
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the credential when one is sent and lets
// anonymous requests through
func OptionalAuthMiddleware(auth service.Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		AuthMiddleware(auth, logger)(c)
	}
}

// RequireSession rejects API keys on routes that manage the account itself
func RequireSession(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			respondError(c, logger, domain.ErrUnauthenticated)
			return
		}
		if identity.Method != domain.AuthMethodSession {
			respondError(c, logger, fmt.Errorf("%w: session token required", domain.ErrForbidden))
			return
		}
		c.Next()
	}
}

// RequirePermission rejects API keys that were not granted permission
func RequirePermission(permission string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			respondError(c, logger, domain.ErrUnauthenticated)
			return
		}
		if !identity.Can(permission) {
			respondError(c, logger, fmt.Errorf("%w: missing permission %s", domain.ErrForbidden, permission))
			return
		}
		c.Next()
	}
}

// RequireAdmin only lets administrators through
func RequireAdmin(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			respondError(c, logger, domain.ErrUnauthenticated)
			return
		}
		if !identity.IsAdmin {
			respondError(c, logger, fmt.Errorf("%w: administrator access required", domain.ErrForbidden))
			return
		}
		c.Next()
	}
}

// MeterAPICalls charges one api_calls unit for every request made with an
// API key. A request over quota is refused before the handler runs.
func MeterAPICalls(usage service.UsageService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok || identity.Method != domain.AuthMethodAPIKey {
			c.Next()
			return
		}

		if _, err := usage.TryConsume(c.Request.Context(), identity.UserID, domain.ResourceAPICalls, 1); err != nil {
			respondError(c, logger, err)
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity AuthMiddleware stored on the request
func IdentityFrom(c *gin.Context) (*domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*domain.Identity)
	return identity, ok && identity != nil
}

func setIdentity(c *gin.Context, identity *domain.Identity) {
	c.Set(identityKey, identity)
	c.Set(userIDKey, identity.UserID)
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", domain.ErrUnauthenticated
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", domain.ErrUnauthenticated
	}
	return strings.TrimSpace(token), nil
}

// credentialKinds are the ways a presented credential can be rejected.
// All of them answer 401.
var credentialKinds = []struct {
	target error
	kind   string
}{
	{domain.ErrTokenExpired, "token_expired"},
	{domain.ErrTokenRevoked, "token_revoked"},
	{domain.ErrTokenInvalid, "token_invalid"},
	{domain.ErrAPIKeyNotFound, "api_key_not_found"},
	{domain.ErrAPIKeyInactive, "api_key_inactive"},
	{domain.ErrUnauthenticated, "unauthenticated"},
}

func respondAuthError(c *gin.Context, logger *zap.Logger, err error) {
	for _, k := range credentialKinds {
		if errors.Is(err, k.target) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: k.kind, Message: k.target.Error()})
			return
		}
	}
	respondError(c, logger, err)
}
