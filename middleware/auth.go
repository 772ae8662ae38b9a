package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gigcal/utils"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error_code": "unauthorized", "message": message})
}

// JWTAuthUserMiddleware requires a valid HS256 token carrying a subject and
// stores the subject under "userID".
func JWTAuthUserMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "Missing or invalid Authorization header")
			return
		}

		userID, err := utils.ExtractIDFromToken(tokenString, secret)
		if err != nil {
			unauthorized(c, "Invalid token")
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
