package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/podbrah/podbrah-backend/middleware"
	"github.com/podbrah/podbrah-backend/services"
)

func (ctl *Controller) GetProfile(c *gin.Context) {
	profile, err := ctl.Repo.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type completeProfileInput struct {
	Name string  `json:"name" binding:"required"`
	Bio  *string `json:"bio"`
}

func (ctl *Controller) CompleteProfile(c *gin.Context) {
	var input completeProfileInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Name) == "" {
		badRequest(c, "Name is required")
		return
	}
	profile, err := ctl.Repo.CompleteProfile(c.Request.Context(), middleware.UserID(c), strings.TrimSpace(input.Name), input.Bio)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "redirect": "/profile"})
}

// UpdateTwin takes multipart form data: twin_name and an optional avatar image.
func (ctl *Controller) UpdateTwin(c *gin.Context) {
	twinName := strings.TrimSpace(c.PostForm("twin_name"))
	if twinName == "" {
		badRequest(c, "Twin name is required")
		return
	}
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	previous, err := ctl.Repo.GetProfile(ctx, userID)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	var avatarURL *string
	header, err := c.FormFile("avatar")
	if err == nil {
		contentType := header.Header.Get("Content-Type")
		if _, err := services.ValidateAvatar(contentType, header.Size); err != nil {
			ctl.respondError(c, err)
			return
		}
		if ctl.Avatars == nil {
			ctl.respondError(c, errNotConfigured)
			return
		}
		file, err := header.Open()
		if err != nil {
			badRequest(c, "Cannot read avatar")
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, services.MaxAvatarBytes+1))
		file.Close()
		if err != nil {
			badRequest(c, "Cannot read avatar")
			return
		}
		url, err := ctl.Avatars.Upload(ctx, userID, contentType, data)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		avatarURL = &url
	}

	profile, err := ctl.Repo.UpdateTwin(ctx, userID, twinName, avatarURL)
	if err != nil {
		if avatarURL != nil {
			if derr := ctl.Avatars.Delete(ctx, *avatarURL); derr != nil {
				ctl.Log.Warn("uploaded avatar not cleaned up", "user_id", userID, "error", derr)
			}
		}
		ctl.respondError(c, err)
		return
	}

	if avatarURL != nil && previous.AvatarURL != nil && *previous.AvatarURL != *avatarURL {
		if err := ctl.Avatars.Delete(ctx, *previous.AvatarURL); err != nil {
			ctl.Log.Warn("old avatar not deleted", "user_id", userID, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "redirect": "/profile"})
}

// ListIdeas returns the caller's saved theme explanations, newest first.
func (ctl *Controller) ListIdeas(c *gin.Context) {
	ideas, err := ctl.Repo.ListUserIdeas(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ideas": ideas})
}
