package controllers

import (
	"context"
	"net/http"

	"cloud.google.com/go/auth/credentials/idtoken"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/podbrah/podbrah-backend/apperr"
	"github.com/podbrah/podbrah-backend/logger"
	"github.com/podbrah/podbrah-backend/repository"
	"github.com/podbrah/podbrah-backend/services"
	"github.com/podbrah/podbrah-backend/utils"
	"github.com/podbrah/podbrah-backend/ws"
)

// GoogleVerifier checks a Google ID token for the given audience.
type GoogleVerifier func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Controller holds what the handlers need. Optional integrations may be nil;
// their endpoints then answer 500.
type Controller struct {
	DB        *gorm.DB
	Repo      *repository.Repository
	Completer services.Completer
	Retriever services.Retriever
	Assistant services.AssistantRunner
	Mailing   services.Subscriber
	Avatars   services.AvatarStore
	Wizards   *services.WizardService
	Hub       *ws.Hub
	Tokens    *utils.TokenIssuer
	Log       *logger.Logger

	GoogleClientID    string
	VerifyGoogleToken GoogleVerifier
}

func New(c Controller) *Controller {
	if c.Log == nil {
		c.Log = logger.Nop()
	}
	if c.VerifyGoogleToken == nil {
		c.VerifyGoogleToken = idtoken.Validate
	}
	return &c
}

var errNotConfigured = apperr.New(apperr.KindUpstream, "not_configured", "This feature is not configured")

// respondError renders {"error": message} with the status of the error kind.
func (ctl *Controller) respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		ctl.Log.Error("request failed", "path", c.FullPath(), "code", apperr.CodeOf(err), "error", err)
	} else {
		ctl.Log.Debug("request rejected", "path", c.FullPath(), "code", apperr.CodeOf(err), "error", err)
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
