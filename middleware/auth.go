package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/meatvault/stock-service/models"
)

// UserKey is the gin context key holding the authenticated user.
const UserKey = "current_user"

// RequireUser validates the session token and places the acting user in the
// request context. Identity is an external concern: this service only
// consumes uid, name and email claims issued by the auth provider. Tokens
// arrive in the Authorization header, or in the token query parameter for
// EventSource connections, which cannot set headers.
func RequireUser(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		uid, _ := claims["uid"].(string)
		if uid == "" {
			uid, _ = claims["sub"].(string)
		}
		if uid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		name, _ := claims["name"].(string)
		email, _ := claims["email"].(string)

		c.Set(UserKey, &models.AppUser{UID: uid, DisplayName: name, Email: email})
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil when the request is
// unauthenticated (e.g. a route registered without RequireUser).
func CurrentUser(c *gin.Context) *models.AppUser {
	if v, exists := c.Get(UserKey); exists {
		if user, ok := v.(*models.AppUser); ok {
			return user
		}
	}
	return nil
}
