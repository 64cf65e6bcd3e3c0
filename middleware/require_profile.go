package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podbrah/podbrah-backend/models"
	"github.com/podbrah/podbrah-backend/repository"
)

type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// RequireCompletedProfile must run after AuthMiddleware. Users who have not
// finished onboarding are told where to go instead of being served.
func RequireCompletedProfile(profiles ProfileReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not signed in"})
			return
		}

		p, err := profiles.GetProfile(c.Request.Context(), userID)
		switch {
		case errors.Is(err, repository.ErrProfileNotFound):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Profile not completed", "redirect": "/complete-profile"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
			return
		}

		if !p.ProfileCompleted {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Profile not completed", "redirect": "/complete-profile"})
			return
		}
		c.Next()
	}
}
