package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"crm-backend/internal/shared"
	"crm-backend/internal/shared/response"
	"crm-backend/pkg/jwt"
)

// AuthMiddleware validates the bearer token and puts user_id/role into the
// gin context for the handlers.
func AuthMiddleware(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := manager.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(shared.CtxUserID, claims.UserID)
		c.Set(shared.CtxRole, claims.Role)
		c.Next()
	}
}
