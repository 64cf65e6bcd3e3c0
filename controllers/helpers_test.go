package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "github.com/podbrah/podbrah-backend/logger"
	"github.com/podbrah/podbrah-backend/middleware"
	"github.com/podbrah/podbrah-backend/models"
	"github.com/podbrah/podbrah-backend/repository"
	"github.com/podbrah/podbrah-backend/services"
	"github.com/podbrah/podbrah-backend/utils"
	"github.com/podbrah/podbrah-backend/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCompleter struct {
	mu    sync.Mutex
	reply func(services.CompletionRequest) (string, error)
	calls []services.CompletionRequest
}

func replyWith(s string) *fakeCompleter {
	return &fakeCompleter{reply: func(services.CompletionRequest) (string, error) { return s, nil }}
}

func (f *fakeCompleter) Complete(_ context.Context, req services.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.reply(req)
}

func (f *fakeCompleter) Calls() []services.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.CompletionRequest(nil), f.calls...)
}

type fakeRetriever struct {
	chunks    []services.Chunk
	err       error
	podcastID string
	query     string
}

func (f *fakeRetriever) Retrieve(_ context.Context, podcastID, query string) ([]services.Chunk, error) {
	f.podcastID, f.query = podcastID, query
	return f.chunks, f.err
}

type fakeAssistant struct {
	reply string
	err   error
	got   string
}

func (f *fakeAssistant) Run(_ context.Context, content string) (string, error) {
	f.got = content
	return f.reply, f.err
}

type fakeMailing struct {
	err    error
	emails []string
}

func (f *fakeMailing) Subscribe(_ context.Context, email string) error {
	f.emails = append(f.emails, email)
	return f.err
}

type fakeAvatars struct {
	uploaded []string
	deleted  []string
	// afterUpload runs once the object is "stored".
	afterUpload func()
}

func (f *fakeAvatars) Upload(_ context.Context, userID, contentType string, data []byte) (string, error) {
	url := "https://cdn.test/storage/v1/object/public/avatars/" + userID + "/" + uuid.NewString() + ".png"
	f.uploaded = append(f.uploaded, url)
	if f.afterUpload != nil {
		f.afterUpload()
	}
	return url, nil
}

func (f *fakeAvatars) Delete(_ context.Context, publicURL string) error {
	f.deleted = append(f.deleted, publicURL)
	return nil
}

const podcastMetadata = `{
	"podcast_title": "Minds and Machines",
	"podcast_overview": "A talk about AI.",
	"themes": [
		{"chapter_number": 2, "theme_title": "Ethics", "theme_gist": "Who is responsible."},
		{"chapter_number": 1, "theme_title": "Intro", "theme_gist": "What AI is.", "simple_breakdown": "AI learns from data."}
	]
}`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.Migrate(db))

	require.NoError(t, db.Create(&models.ContentItem{
		PodcastID:   "42",
		PodcastLink: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Metadata:    datatypes.JSON(podcastMetadata),
	}).Error)
	return db
}

type testEnv struct {
	ctl       *Controller
	db        *gorm.DB
	completer *fakeCompleter
	retriever *fakeRetriever
	assistant *fakeAssistant
	mailing   *fakeMailing
	avatars   *fakeAvatars
	hub       *ws.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	repo := repository.New(db)
	env := &testEnv{
		db:        db,
		completer: replyWith("A fine answer."),
		retriever: &fakeRetriever{chunks: []services.Chunk{{ID: 1, Content: "passage one"}, {ID: 2, Content: "passage two"}}},
		assistant: &fakeAssistant{reply: "assistant says hi"},
		mailing:   &fakeMailing{},
		avatars:   &fakeAvatars{},
		hub:       ws.NewHub(applog.Nop()),
	}
	store := services.NewMemorySessionStore(time.Hour)
	env.ctl = New(Controller{
		DB:        db,
		Repo:      repo,
		Completer: env.completer,
		Retriever: env.retriever,
		Assistant: env.assistant,
		Mailing:   env.mailing,
		Avatars:   env.avatars,
		Wizards:   services.NewWizardService(repo, store, env.completer, services.WizardServiceConfig{}, applog.Nop()),
		Hub:       env.hub,
		Tokens:    utils.NewTokenIssuer("secret", time.Hour),
	})
	return env
}

// asUser stands in for the auth middleware.
func asUser(userID, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextEmail, email)
		c.Next()
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(strings.NewReader(w.Body.String())).Decode(out))
}

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
