package middleware

import (
	"github.com/gin-gonic/gin"

	"crm-backend/internal/shared"
	"crm-backend/internal/shared/response"
)

// AdminMiddleware checks if the authenticated user has the admin role.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleInterface, exists := c.Get(shared.CtxRole)
		if !exists {
			response.Forbidden(c, "access denied: admin role required")
			c.Abort()
			return
		}

		role, ok := roleInterface.(string)
		if !ok || role != shared.RoleAdmin {
			response.Forbidden(c, "access denied: admin role required")
			c.Abort()
			return
		}

		c.Next()
	}
}
