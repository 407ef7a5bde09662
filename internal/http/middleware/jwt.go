package middleware

import (
	"net/http"
	"strings"

	"cypher_arena/internal/service"

	"github.com/gin-gonic/gin"
)

const playerIDKey = "player_id"

// JWT requires a bearer token and stores its player id in the context.
func JWT(tokens *service.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		playerID, err := tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(playerIDKey, playerID)
		c.Next()
	}
}

// PlayerID returns the id stored by JWT.
func PlayerID(c *gin.Context) (string, bool) {
	v, ok := c.Get(playerIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
