package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"gigcal/utils"
)

var compareAdminKey = bcrypt.CompareHashAndPassword

// looksLikeJWT reports whether token has the three dot-separated segments of
// a compact JWS. Such tokens are never compared against the static key.
func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

// JWTAuthAdminMiddleware admits either a JWT whose role claim is admin or the
// static admin key whose bcrypt hash is adminKeyHash. The static key must not
// contain dots.
func JWTAuthAdminMiddleware(secret, adminKeyHash string) gin.HandlerFunc {
	hash := []byte(adminKeyHash)

	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "Missing or invalid Authorization header")
			return
		}

		if looksLikeJWT(tokenString) {
			if claims, err := utils.ValidateToken(tokenString, secret); err == nil {
				if role, _ := claims["role"].(string); role == utils.RoleAdmin {
					sub, _ := claims["sub"].(string)
					c.Set("adminID", sub)
					c.Set("isAdmin", true)
					c.Next()
					return
				}
			}
			unauthorized(c, "Unauthorized admin access")
			return
		}

		if len(hash) > 0 && compareAdminKey(hash, []byte(tokenString)) == nil {
			c.Set("adminID", "static-key")
			c.Set("isAdmin", true)
			c.Next()
			return
		}

		unauthorized(c, "Unauthorized admin access")
	}
}
