package api

import (
	"net/http"
	"strings"

	"convo/contract"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor_id"

// BearerAuth resolves the Authorization header into the acting user id.
// Handlers downstream read the actor from the context; the delivery facade
// itself still receives it as an explicit parameter.
func BearerAuth(identity contract.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := identity.CurrentUser(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(actorKey, userID)
		c.Next()
	}
}

func actor(c *gin.Context) string {
	return c.GetString(actorKey)
}
