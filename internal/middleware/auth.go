package middleware

import (
	"net/http"
	"strings"

	"fieldbooking/internal/domain"
	"fieldbooking/internal/pkg/jwt"
	"fieldbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// JWTAuth validates the bearer token and stores the caller as a domain.Actor.
// "user_id" and "role" are also set for handlers that only need those.
func JWTAuth(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		actor, err := ActorFromToken(tokens, strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", actor.ID)
		c.Set("role", string(actor.Role))
		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFromToken validates a raw token and maps its role claim onto a domain role.
func ActorFromToken(tokens *jwt.Service, token string) (domain.Actor, error) {
	claims, err := tokens.ValidateToken(token)
	if err != nil {
		return domain.Actor{}, err
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Actor{}, jwt.ErrInvalidToken
	}
	return domain.Actor{ID: claims.UserID, Role: role}, nil
}

func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}
