package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/podbrah/podbrah-backend/apperr"
	"github.com/podbrah/podbrah-backend/services"
)

type talkInput struct {
	Messages []services.ChatMessage `json:"messages"`
}

// TalkChat relays the last message to the hosted assistant and answers with plain text.
func (ctl *Controller) TalkChat(c *gin.Context) {
	var input talkInput
	if err := c.ShouldBindJSON(&input); err != nil || len(input.Messages) == 0 {
		c.String(http.StatusBadRequest, "Error: messages are required")
		return
	}
	last := input.Messages[len(input.Messages)-1]
	if strings.TrimSpace(last.Content) == "" {
		c.String(http.StatusBadRequest, "Error: messages are required")
		return
	}
	if ctl.Assistant == nil {
		c.String(http.StatusInternalServerError, "Error: "+apperr.PublicMessage(errNotConfigured))
		return
	}

	reply, err := ctl.Assistant.Run(c.Request.Context(), last.Content)
	if err != nil {
		ctl.Log.Error("assistant chat failed", "code", apperr.CodeOf(err), "error", err)
		c.String(http.StatusInternalServerError, "Error: "+apperr.PublicMessage(err))
		return
	}
	c.String(http.StatusOK, reply)
}
