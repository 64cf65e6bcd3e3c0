package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/podbrah/podbrah-backend/apperr"
	"github.com/podbrah/podbrah-backend/services"
)

const (
	gistWordLimit  = 30
	gistFallback   = "No gist generated."
	gistConcurrent = 4
)

type chapterInput struct {
	ChapterTitle string `json:"chapter_title"`
	Summary      string `json:"summary"`
}

type overviewInput struct {
	Chapters json.RawMessage `json:"chapters"`
}

// Overview returns one short gist per chapter, in request order.
func (ctl *Controller) Overview(c *gin.Context) {
	var input overviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Chapters array is required.")
		return
	}
	raw := bytes.TrimSpace(input.Chapters)
	var chapters []chapterInput
	if len(raw) == 0 || raw[0] != '[' || json.Unmarshal(raw, &chapters) != nil {
		badRequest(c, "Chapters array is required.")
		return
	}
	if ctl.Completer == nil {
		ctl.respondError(c, errNotConfigured)
		return
	}

	gists := make([]string, len(chapters))
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(gistConcurrent)
	for i, ch := range chapters {
		g.Go(func() error {
			system, user := services.ComposeGistPrompt(ch.ChapterTitle, ch.Summary)
			reply, err := ctl.Completer.Complete(ctx, services.CompletionRequest{
				Task:   services.TaskGist,
				System: system,
				User:   user,
			})
			if err != nil {
				return err
			}
			if reply == services.FallbackReply {
				reply = gistFallback
			}
			gists[i] = services.LimitWords(reply, gistWordLimit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gists": gists})
}

// FlexibleID accepts the podcast id as a JSON string or number.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("podcastId must be a string or a number")
	}
	*f = FlexibleID(n.String())
	return nil
}

type chatTheme struct {
	ThemeTitle string `json:"theme_title"`
	ThemeGist  string `json:"theme_gist"`
}

type chatProgress struct {
	CurrentTheme int    `json:"currentTheme"`
	TotalThemes  int    `json:"totalThemes"`
	Stage        string `json:"stage"`
}

type themeContext struct {
	Stage        string       `json:"stage"`
	CurrentTheme *chatTheme   `json:"currentTheme"`
	Progress     chatProgress `json:"progress"`
	UserContext  string       `json:"userContext"`
}

type overviewChatInput struct {
	Message      string        `json:"message"`
	SessionID    string        `json:"sessionId"`
	PodcastID    FlexibleID    `json:"podcastId"`
	Name         string        `json:"name"`
	ThemeContext *themeContext `json:"themeContext"`
}

func (in overviewChatInput) valid() bool {
	if strings.TrimSpace(in.Message) == "" || in.SessionID == "" || in.PodcastID == "" || in.ThemeContext == nil {
		return false
	}
	switch in.ThemeContext.Stage {
	case services.StageDiscussion, services.StageSynthesis:
		return true
	}
	return in.ThemeContext.CurrentTheme != nil
}

// OverviewChat answers one message about the current theme, grounded in
// passages retrieved from the podcast.
func (ctl *Controller) OverviewChat(c *gin.Context) {
	var input overviewChatInput
	if err := c.ShouldBindJSON(&input); err != nil || !input.valid() {
		badRequest(c, "Missing required parameters")
		return
	}
	if ctl.Completer == nil || ctl.Retriever == nil {
		ctl.chatError(c, errNotConfigured)
		return
	}
	ctx := c.Request.Context()

	chunks, err := ctl.Retriever.Retrieve(ctx, string(input.PodcastID), input.Message)
	if err != nil {
		ctl.chatError(c, err)
		return
	}
	podcastContext := services.JoinChunks(chunks)

	tc := input.ThemeContext
	var system string
	switch tc.Stage {
	case services.StageDiscussion, services.StageSynthesis:
		system = services.ComposeDiscussionPrompt(tc.Stage, tc.UserContext, podcastContext, input.Name)
	default:
		system = services.ComposeThemePrompt(tc.Stage, tc.CurrentTheme.ThemeTitle, tc.CurrentTheme.ThemeGist, podcastContext, input.Name)
	}

	reply, err := ctl.Completer.Complete(ctx, services.CompletionRequest{
		Task:   services.TaskThemeChat,
		System: system,
		User:   input.Message,
	})
	if err != nil {
		ctl.chatError(c, err)
		return
	}

	ctl.Log.Debug("overview chat answered", "session_id", input.SessionID, "podcast_id", string(input.PodcastID), "stage", tc.Stage)
	c.JSON(http.StatusOK, gin.H{
		"output": reply,
		"progress": chatProgress{
			CurrentTheme: tc.Progress.CurrentTheme,
			TotalThemes:  tc.Progress.TotalThemes,
			Stage:        tc.Stage,
		},
	})
}

func (ctl *Controller) chatError(c *gin.Context, err error) {
	ctl.Log.Error("overview chat failed", "code", apperr.CodeOf(err), "error", err)
	c.JSON(apperr.Status(err), gin.H{
		"error":   apperr.PublicMessage(err),
		"details": apperr.CodeOf(err),
	})
}

// PodcastOverview returns the stored overview and themes for one podcast.
func (ctl *Controller) PodcastOverview(c *gin.Context) {
	overview, err := ctl.Repo.GetOverview(c.Request.Context(), c.Param("podcast_id"))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
