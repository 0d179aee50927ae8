package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"popcapture/api/utils"
)

// AuthRequired guards the stats API. Tokens are signed by the admin app
// with the shared secret; the verified shop claim is placed on the
// context for handlers to scope their queries with.
func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a Bearer token"})
			return
		}

		claims, err := utils.ValidateJWT(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("shop", claims.Shop)
		c.Next()
	}
}
