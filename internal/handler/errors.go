package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"go.uber.org/zap"
)

// errorKind maps a domain error to a status and a stable kind. Errors
// marked verbose expose their full message; the others answer with the
// sentinel text only.
type errorKind struct {
	target  error
	status  int
	kind    string
	verbose bool
}

var errorKinds = []errorKind{
	{domain.ErrWeakPassword, http.StatusBadRequest, "weak_password", true},
	{domain.ErrValidation, http.StatusBadRequest, "validation_error", true},
	{domain.ErrDuplicateEmail, http.StatusConflict, "duplicate_email", false},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", false},
	{domain.ErrEmailNotVerified, http.StatusForbidden, "email_not_verified", false},
	{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found", false},
	{domain.ErrTokenNotFound, http.StatusBadRequest, "token_not_found", false},
	{domain.ErrTokenExpired, http.StatusGone, "token_expired", false},
	{domain.ErrTokenAlreadyUsed, http.StatusConflict, "token_already_used", false},
	{domain.ErrTokenInvalid, http.StatusUnauthorized, "token_invalid", false},
	{domain.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked", false},
	{domain.ErrStateMismatch, http.StatusBadRequest, "state_mismatch", false},
	{domain.ErrOAuthExchangeFailed, http.StatusBadGateway, "oauth_exchange_failed", false},
	{domain.ErrOAuthProfileFetch, http.StatusBadGateway, "oauth_profile_fetch_failed", true},
	{domain.ErrUnsupportedProvider, http.StatusNotFound, "unsupported_provider", false},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited", true},
	{domain.ErrAPIKeyNotFound, http.StatusNotFound, "api_key_not_found", false},
	{domain.ErrAPIKeyInactive, http.StatusUnauthorized, "api_key_inactive", false},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", false},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden", true},
}

// respondError writes the error response for err. Errors outside the
// taxonomy are logged and answered with a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var quotaErr *domain.QuotaExceededError
	if errors.As(err, &quotaErr) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:   "quota_exceeded",
			Message: quotaErr.Error(),
			Details: dto.QuotaDetails{
				Resource:     string(quotaErr.Resource),
				CurrentUsage: quotaErr.CurrentUsage,
				Limit:        quotaErr.Limit,
			},
		})
		return
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Error(),
			Details: validationErr.Fields,
		})
		return
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			message := k.target.Error()
			if k.verbose {
				message = err.Error()
			}
			c.AbortWithStatusJSON(k.status, dto.ErrorResponse{Error: k.kind, Message: message})
			return
		}
	}

	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   "internal_error",
		Message: "internal server error",
	})
}

var setupValidatorOnce sync.Once

// SetupValidator makes binding errors name fields by their JSON tag
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})
		}
	})
}

// bindJSON decodes the body into req and reports binding failures as
// validation errors.
func bindJSON(c *gin.Context, logger *zap.Logger, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, logger, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return domain.NewValidationError("body", "malformed JSON body")
	}

	fields := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fields[e.Field()] = validationMessage(e)
	}
	return &domain.ValidationError{Fields: fields}
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "invalid email format"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "gt":
		return "must be greater than " + e.Param()
	default:
		return "invalid value"
	}
}
