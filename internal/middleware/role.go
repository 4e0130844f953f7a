package middleware

import (
	"net/http"

	"fieldbooking/internal/domain"
	"fieldbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequirePermission rejects callers whose role does not hold op. Services re-check the same
// permission, so this only short-circuits obviously forbidden requests.
func RequirePermission(op domain.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			c.Abort()
			return
		}
		if !actor.Can(op) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
