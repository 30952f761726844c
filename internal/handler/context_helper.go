package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-lifecycle-api/internal/middleware"
	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	"github.com/noah-isme/academy-lifecycle-api/pkg/logger"
	"github.com/noah-isme/academy-lifecycle-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext builds the explicit caller identity handed to domain services.
func actorFromContext(c *gin.Context) *models.AuthContext {
	actor := models.NewAuthContext(claimsFromContext(c), c.ClientIP(), c.GetHeader("User-Agent"))
	if actor != nil {
		c.Set(logger.ActorKey, actor.UserID)
	}
	return actor
}

func respondWithMeta(c *gin.Context, status int, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, status, data, nil, middleware.ResponseMeta(c))
}
