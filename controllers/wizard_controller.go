package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podbrah/podbrah-backend/middleware"
	"github.com/podbrah/podbrah-backend/services"
	"github.com/podbrah/podbrah-backend/wizard"
)

type startWizardInput struct {
	PodcastID      FlexibleID `json:"podcast_id"`
	ChapterNumbers []int      `json:"chapter_numbers"`
}

func (ctl *Controller) StartWizard(c *gin.Context) {
	var input startWizardInput
	if err := c.ShouldBindJSON(&input); err != nil || input.PodcastID == "" {
		badRequest(c, "podcast_id is required")
		return
	}
	view, err := ctl.Wizards.Start(c.Request.Context(), middleware.UserID(c), string(input.PodcastID), input.ChapterNumbers)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (ctl *Controller) GetWizard(c *gin.Context) {
	ctl.renderView(c)(ctl.Wizards.Get(c.Request.Context(), middleware.UserID(c), c.Param("id")))
}

type choiceInput struct {
	Choice wizard.Choice `json:"choice" binding:"required"`
}

func (ctl *Controller) ChooseWizard(c *gin.Context) {
	var input choiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "choice is required")
		return
	}
	ctl.renderView(c)(ctl.Wizards.Choose(c.Request.Context(), middleware.UserID(c), c.Param("id"), input.Choice))
}

type messageInput struct {
	Text string `json:"text"`
}

// SubmitWizardMessage ignores blank text and returns the unchanged state.
func (ctl *Controller) SubmitWizardMessage(c *gin.Context) {
	var input messageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "text is required")
		return
	}
	ctl.renderView(c)(ctl.Wizards.Submit(c.Request.Context(), middleware.UserID(c), c.Param("id"), input.Text))
}

func (ctl *Controller) AdvanceWizard(c *gin.Context) {
	ctl.renderView(c)(ctl.Wizards.Advance(c.Request.Context(), middleware.UserID(c), c.Param("id")))
}

type synthesizeInput struct {
	Discussion string `json:"discussion"`
}

func (ctl *Controller) SynthesizeWizard(c *gin.Context) {
	var input synthesizeInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "invalid body")
			return
		}
	}
	ctl.renderView(c)(ctl.Wizards.Synthesize(c.Request.Context(), middleware.UserID(c), c.Param("id"), input.Discussion))
}

// FinishWizard persists the run and pushes the new feed entry to live listeners.
func (ctl *Controller) FinishWizard(c *gin.Context) {
	res, err := ctl.Wizards.Finish(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	if ctl.Hub != nil {
		ctl.Hub.BroadcastFeedEntry(res.PodcastID, res.Entry)
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *Controller) renderView(c *gin.Context) func(*services.SessionView, error) {
	return func(view *services.SessionView, err error) {
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
