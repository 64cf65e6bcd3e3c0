package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/podbrah/podbrah-backend/utils"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

type TokenVerifier interface {
	VerifyToken(tokenString string) (*utils.Claims, error)
}

// bearerToken reads "Authorization: Bearer <token>", falling back to X-Auth-Token for mobile clients.
func bearerToken(c *gin.Context) (string, bool, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		header = c.GetHeader("X-Auth-Token")
	}
	if header == "" {
		return "", false, true
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", true, false
	}
	return parts[1], true, true
}

func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, wellFormed := bearerToken(c)
		if !present {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			return
		}
		if !wellFormed {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header"})
			return
		}

		claims, err := tokens.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID())
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// OptionalAuthMiddleware lets anonymous requests through. A bad token counts as anonymous.
func OptionalAuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, wellFormed := bearerToken(c)
		if !present || !wellFormed {
			c.Next()
			return
		}
		claims, err := tokens.VerifyToken(token)
		if err != nil {
			c.Next()
			return
		}
		c.Set(ContextUserID, claims.UserID())
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
