package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podbrah/podbrah-backend/services"
)

func overviewRouter(env *testEnv) *gin.Engine {
	r := gin.New()
	r.POST("/api/overview", env.ctl.Overview)
	r.POST("/api/overviewchat", env.ctl.OverviewChat)
	r.GET("/api/podcasts/:podcast_id/overview", env.ctl.PodcastOverview)
	return r
}

func TestOverviewReturnsOneGistPerChapter(t *testing.T) {
	env := newTestEnv(t)
	env.completer = replyWith(strings.Repeat("word ", 40))
	env.ctl.Completer = env.completer
	r := overviewRouter(env)

	w := doJSON(t, r, http.MethodPost, "/api/overview", map[string]any{
		"chapters": []map[string]string{{"chapter_title": "A", "summary": "B"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Gists []string `json:"gists"`
	}
	decode(t, w, &body)
	require.Len(t, body.Gists, 1)
	assert.Len(t, strings.Fields(body.Gists[0]), 30)

	calls := env.completer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, services.TaskGist, calls[0].Task)
	assert.Contains(t, calls[0].User, "Title: A\nSummary: B")
}

func TestOverviewKeepsChapterOrder(t *testing.T) {
	env := newTestEnv(t)
	env.ctl.Completer = &fakeCompleter{reply: func(req services.CompletionRequest) (string, error) {
		if strings.Contains(req.User, "Title: empty") {
			return services.FallbackReply, nil
		}
		i := strings.Index(req.User, "Title: ")
		return "gist of " + req.User[i+len("Title: "):i+len("Title: ")+2], nil
	}}
	r := overviewRouter(env)

	chapters := []map[string]string{}
	for i := 0; i < 6; i++ {
		chapters = append(chapters, map[string]string{"chapter_title": fmt.Sprintf("c%d", i), "summary": "s"})
	}
	chapters = append(chapters, map[string]string{"chapter_title": "empty", "summary": "s"})

	w := doJSON(t, r, http.MethodPost, "/api/overview", map[string]any{"chapters": chapters})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Gists []string `json:"gists"`
	}
	decode(t, w, &body)
	require.Len(t, body.Gists, 7)
	for i := 0; i < 6; i++ {
		assert.Equal(t, fmt.Sprintf("gist of c%d", i), body.Gists[i])
	}
	assert.Equal(t, "No gist generated.", body.Gists[6])
}

func TestOverviewRejectsMissingChapters(t *testing.T) {
	r := overviewRouter(newTestEnv(t))
	for _, body := range []string{`{}`, `{"chapters": "nope"}`, `{"chapters": null}`, `not json`} {
		w := doJSON(t, r, http.MethodPost, "/api/overview", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Chapters array is required."}`, w.Body.String())
	}
}

func TestOverviewProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.ctl.Completer = &fakeCompleter{reply: func(services.CompletionRequest) (string, error) {
		return "", fmt.Errorf("%w: boom", services.ErrCompletion)
	}}
	w := doJSON(t, overviewRouter(env), http.MethodPost, "/api/overview", `{"chapters":[{"chapter_title":"A","summary":"B"}]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func chatBody(podcastID any, stage string) map[string]any {
	return map[string]any{
		"message":   "What is the main point?",
		"sessionId": "s-1",
		"podcastId": podcastID,
		"name":      "Sam",
		"themeContext": map[string]any{
			"stage":        stage,
			"currentTheme": map[string]string{"theme_title": "Ethics", "theme_gist": "Who is responsible."},
			"progress":     map[string]any{"currentTheme": 2, "totalThemes": 5, "stage": "stale"},
		},
	}
}

func TestOverviewChatAnswersWithRetrievedContext(t *testing.T) {
	env := newTestEnv(t)
	w := doJSON(t, overviewRouter(env), http.MethodPost, "/api/overviewchat", chatBody(42, services.StageUnderstanding))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Output   string       `json:"output"`
		Progress chatProgress `json:"progress"`
	}
	decode(t, w, &body)
	assert.Equal(t, "A fine answer.", body.Output)
	assert.Equal(t, chatProgress{CurrentTheme: 2, TotalThemes: 5, Stage: services.StageUnderstanding}, body.Progress)

	assert.Equal(t, "42", env.retriever.podcastID)
	assert.Equal(t, "What is the main point?", env.retriever.query)

	calls := env.completer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, services.TaskThemeChat, calls[0].Task)
	assert.Contains(t, calls[0].System, `"Ethics"`)
	assert.Contains(t, calls[0].System, "passage one\npassage two")
	assert.Equal(t, "What is the main point?", calls[0].User)
}

func TestOverviewChatDiscussionStage(t *testing.T) {
	env := newTestEnv(t)
	body := chatBody("42", services.StageDiscussion)
	tc := body["themeContext"].(map[string]any)
	delete(tc, "currentTheme")
	tc["userContext"] = "I liked the ethics part"

	w := doJSON(t, overviewRouter(env), http.MethodPost, "/api/overviewchat", body)
	require.Equal(t, http.StatusOK, w.Code)
	calls := env.completer.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].System, "I liked the ethics part")
}

func TestOverviewChatNoRelevantContentIsServerError(t *testing.T) {
	env := newTestEnv(t)
	env.retriever.err = services.ErrNoRelevantContent

	w := doJSON(t, overviewRouter(env), http.MethodPost, "/api/overviewchat", chatBody("does-not-exist", services.StageIntroduction))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "No relevant content found", body["error"])
	assert.Equal(t, "no_relevant_content", body["details"])
	assert.Empty(t, env.completer.Calls())
}

func TestOverviewChatMissingParameters(t *testing.T) {
	env := newTestEnv(t)
	r := overviewRouter(env)
	for _, field := range []string{"message", "sessionId", "podcastId", "themeContext"} {
		body := chatBody("42", services.StageIntroduction)
		delete(body, field)
		w := doJSON(t, r, http.MethodPost, "/api/overviewchat", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, field)
		assert.JSONEq(t, `{"error":"Missing required parameters"}`, w.Body.String())
	}
}

func TestOverviewChatCompletionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.ctl.Completer = &fakeCompleter{reply: func(services.CompletionRequest) (string, error) {
		return "", errors.Join(services.ErrCompletion, errors.New("rate limited"))
	}}
	w := doJSON(t, overviewRouter(env), http.MethodPost, "/api/overviewchat", chatBody("42", services.StageIntroduction))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "completion_failed")
}

func TestPodcastOverview(t *testing.T) {
	r := overviewRouter(newTestEnv(t))

	w := doJSON(t, r, http.MethodGet, "/api/podcasts/42/overview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Title     string `json:"podcast_title"`
		Thumbnail string `json:"thumbnail_url"`
		Themes    []struct {
			ChapterNumber int `json:"chapter_number"`
		} `json:"themes"`
	}
	decode(t, w, &body)
	assert.Equal(t, "Minds and Machines", body.Title)
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", body.Thumbnail)
	require.Len(t, body.Themes, 2)
	assert.Equal(t, 1, body.Themes[0].ChapterNumber)

	w = doJSON(t, r, http.MethodGet, "/api/podcasts/404/overview", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlexibleID(t *testing.T) {
	var in struct {
		ID FlexibleID `json:"id"`
	}
	for raw, want := range map[string]FlexibleID{`{"id":42}`: "42", `{"id":" 42 "}`: "42", `{"id":null}`: ""} {
		require.NoError(t, jsonUnmarshal(raw, &in), raw)
		assert.Equal(t, want, in.ID, raw)
	}
	assert.Error(t, jsonUnmarshal(`{"id":true}`, &in))
}
