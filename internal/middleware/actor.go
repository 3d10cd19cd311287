package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

// ContextActorKey stores the resolved *models.Actor.
const ContextActorKey = "actor"

// ActorResolver turns claims into an actor.
type ActorResolver interface {
	Resolve(ctx context.Context, claims *models.JWTClaims) (*models.Actor, error)
}

// Actor resolves the caller's capabilities once per request. It must run after JWT.
func Actor(resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		actor, err := resolver.Resolve(c.Request.Context(), claims)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextActorKey, actor)
		c.Set("actor_id", actor.UserID)
		c.Next()
	}
}

// ActorFrom returns the resolved actor or nil.
func ActorFrom(c *gin.Context) *models.Actor {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return nil
	}
	actor, _ := value.(*models.Actor)
	return actor
}
