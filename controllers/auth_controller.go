package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podbrah/podbrah-backend/apperr"
	"github.com/podbrah/podbrah-backend/middleware"
	"github.com/podbrah/podbrah-backend/models"
)

var errInvalidGoogleToken = apperr.New(apperr.KindUnauthorized, "invalid_google_token", "Invalid Google token")

func onboardingRedirect(p *models.Profile) string {
	if p.ProfileCompleted {
		return "/profile"
	}
	return "/complete-profile"
}

type GoogleLoginInput struct {
	IDToken string `json:"id_token" binding:"required"`
}

// GoogleLogin exchanges a Google ID token for an app token. The Google
// subject becomes the profile id.
func (ctl *Controller) GoogleLogin(c *gin.Context) {
	var input GoogleLoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "id_token is required")
		return
	}
	if ctl.GoogleClientID == "" {
		ctl.respondError(c, errNotConfigured)
		return
	}

	payload, err := ctl.VerifyGoogleToken(c.Request.Context(), input.IDToken, ctl.GoogleClientID)
	if err != nil || payload.Subject == "" {
		ctl.respondError(c, errInvalidGoogleToken)
		return
	}
	email, _ := payload.Claims["email"].(string)

	profile, err := ctl.Repo.EnsureProfile(c.Request.Context(), payload.Subject, email)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	token, err := ctl.Tokens.GenerateToken(profile.ID, email)
	if err != nil {
		ctl.respondError(c, apperr.Wrap(apperr.KindInternal, "token_failed", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"profile":  profile,
		"redirect": onboardingRedirect(profile),
	})
}

// AuthCallback runs after the identity provider signs a user in. It creates the
// profile row on first visit and says where onboarding continues.
func (ctl *Controller) AuthCallback(c *gin.Context) {
	profile, err := ctl.Repo.EnsureProfile(c.Request.Context(), middleware.UserID(c), c.GetString(middleware.ContextEmail))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":  profile,
		"redirect": onboardingRedirect(profile),
	})
}
