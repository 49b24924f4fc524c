package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bugrelay/bugrelay-backend/internal/handlers"
	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/requestdata"
	"github.com/bugrelay/bugrelay-backend/internal/services"
)

type APIKeyMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAPIKeyMiddleware(log *logger.Logger, authService services.AuthService) *APIKeyMiddleware {
	return &APIKeyMiddleware{log: log.With("middleware", "APIKeyMiddleware"), authService: authService}
}

// RequireAPIKey resolves the submission API key before anything else runs. On
// failure it aborts with AUTH_ERROR and no side effects have happened yet.
func (m *APIKeyMiddleware) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := extractAPIKey(c)
		if rawKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorEnvelope{
				Error: handlers.APIError{Code: handlers.CodeAuthError, Message: "missing API key"},
			})
			return
		}
		tenant, err := m.authService.ResolveAPIKey(c.Request.Context(), rawKey)
		if err != nil {
			if !errors.Is(err, services.ErrInvalidAPIKey) {
				m.log.Error("api key resolution failed", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorEnvelope{
				Error: handlers.APIError{Code: handlers.CodeAuthError, Message: "invalid or revoked API key"},
			})
			return
		}
		c.Request = c.Request.WithContext(requestdata.WithTenant(c.Request.Context(), tenant))
		c.Next()
	}
}

func extractAPIKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("X-API-Key")); key != "" {
		return key
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
