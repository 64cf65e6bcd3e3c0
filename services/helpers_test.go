package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/podbrah/podbrah-backend/models"
	"github.com/podbrah/podbrah-backend/repository"
)

type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	delay time.Duration
	calls []CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeCompleter) Calls() []CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CompletionRequest(nil), f.calls...)
}

const twoThemeMetadata = `{
	"podcast_title": "Minds and Machines",
	"themes": [
		{"chapter_number": 1, "theme_title": "Intro", "theme_gist": "What AI is."},
		{"chapter_number": 2, "theme_title": "Ethics", "theme_gist": "Who is responsible."}
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
		PodcastLink: "https://youtu.be/dQw4w9WgXcQ",
		Metadata:    datatypes.JSON(twoThemeMetadata),
	}).Error)
	require.NoError(t, db.Create(&models.Profile{ID: "user-1", TwinName: "Echo", ProfileCompleted: true}).Error)
	return db
}
