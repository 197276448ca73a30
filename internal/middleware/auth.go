package middleware

import (
	"net/http"
	"strings"

	"org-task-management-api/internal/apperr"
	"org-task-management-api/internal/auth"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "user_id"
	emailKey  = "email"
)

// JWTAuthMiddleware validates JWT token in Authorization header
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := ""
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		// Browsers cannot set headers on websocket upgrades
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
				"code":  apperr.Unauthorized,
			})
			return
		}

		claims, err := auth.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  apperr.Unauthorized,
			})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(emailKey, claims.Email)
		c.Next()
	}
}

// UserID returns the id set by JWTAuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
