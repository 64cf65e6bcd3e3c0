package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type subscribeInput struct {
	Email string `json:"email"`
}

func (ctl *Controller) Subscribe(c *gin.Context) {
	var input subscribeInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Email) == "" {
		badRequest(c, "Email is required")
		return
	}
	if ctl.Mailing == nil {
		ctl.respondError(c, errNotConfigured)
		return
	}
	if err := ctl.Mailing.Subscribe(c.Request.Context(), strings.TrimSpace(input.Email)); err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
