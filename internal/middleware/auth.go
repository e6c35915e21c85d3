package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/model"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
)

// Authenticator turns a bearer token into an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Actor, error)
}

type AuthMiddleware struct {
	authService Authenticator
}

func NewAuthMiddleware(authService Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate verifies the JWT token and sets the actor in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			handler.RespondError(c, apperrors.Unauthorized(nil))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			handler.RespondError(c, apperrors.Unauthorized(nil))
			return
		}

		actor, err := m.authService.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			handler.RespondError(c, err)
			return
		}

		c.Set(handler.ContextActor, actor)
		c.Next()
	}
}

// RequireRole rejects authenticated actors whose role differs from role.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := handler.Actor(c)
		if !ok {
			return
		}
		if actor.Role != role {
			handler.RespondError(c, apperrors.Forbidden(role+" role required"))
			return
		}
		c.Next()
	}
}
