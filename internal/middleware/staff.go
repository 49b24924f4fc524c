package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bugrelay/bugrelay-backend/internal/handlers"
	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/requestdata"
	"github.com/bugrelay/bugrelay-backend/internal/services"
)

type StaffAuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewStaffAuthMiddleware(log *logger.Logger, authService services.AuthService) *StaffAuthMiddleware {
	return &StaffAuthMiddleware{log: log.With("middleware", "StaffAuthMiddleware"), authService: authService}
}

func (m *StaffAuthMiddleware) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorEnvelope{
				Error: handlers.APIError{Code: handlers.CodeAuthError, Message: "missing or invalid token"},
			})
			return
		}
		staff, err := m.authService.ParseStaffToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorEnvelope{
				Error: handlers.APIError{Code: handlers.CodeAuthError, Message: "invalid staff token"},
			})
			return
		}
		c.Request = c.Request.WithContext(requestdata.WithStaff(c.Request.Context(), staff))
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
