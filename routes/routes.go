package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/podbrah/podbrah-backend/controllers"
	"github.com/podbrah/podbrah-backend/middleware"
	"github.com/podbrah/podbrah-backend/ws"
)

func SetupRouter(r *gin.Engine, ctl *controllers.Controller, wsHandler *ws.Handler) *gin.Engine {
	r.GET("/ping", controllers.Ping)
	r.GET("/health", ctl.HealthCheck)

	requireAuth := middleware.AuthMiddleware(ctl.Tokens)
	optionalAuth := middleware.OptionalAuthMiddleware(ctl.Tokens)
	completed := middleware.RequireCompletedProfile(ctl.Repo)

	// Chat proxy for the talk page.
	r.POST("/talk/api/chat", ctl.TalkChat)

	api := r.Group("/api")
	{
		api.POST("/overview", ctl.Overview)
		api.POST("/overviewchat", optionalAuth, ctl.OverviewChat)
		api.POST("/subscribe", ctl.Subscribe)
		api.POST("/chat", ctl.TalkChat)
	}

	auth := api.Group("/auth")
	{
		auth.POST("/google", ctl.GoogleLogin)
		auth.POST("/callback", requireAuth, ctl.AuthCallback)
	}

	user := api.Group("")
	user.Use(requireAuth)
	{
		user.GET("/profile", ctl.GetProfile)
		user.PUT("/profile", ctl.CompleteProfile)
		user.POST("/profile/twin", ctl.UpdateTwin)
		user.GET("/profile/ideas", ctl.ListIdeas)
		user.GET("/podcasts/:podcast_id/overview", ctl.PodcastOverview)
		user.GET("/feed", ctl.Feed)
		user.GET("/map", ctl.Map)
	}

	wizard := api.Group("/wizard")
	wizard.Use(requireAuth, completed)
	{
		wizard.POST("", ctl.StartWizard)
		wizard.GET("/:id", ctl.GetWizard)
		wizard.POST("/:id/choice", ctl.ChooseWizard)
		wizard.POST("/:id/messages", ctl.SubmitWizardMessage)
		wizard.POST("/:id/advance", ctl.AdvanceWizard)
		wizard.POST("/:id/synthesize", ctl.SynthesizeWizard)
		wizard.POST("/:id/finish", ctl.FinishWizard)
	}

	if wsHandler != nil {
		r.GET("/ws/feed", wsHandler.HandleFeed)
		r.GET("/ws/podcasts/:podcast_id", wsHandler.HandlePodcast)
	}

	return r
}
