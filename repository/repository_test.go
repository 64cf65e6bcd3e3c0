package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/podbrah/podbrah-backend/models"
	"github.com/podbrah/podbrah-backend/wizard"
)

const seededMetadata = `{
	"podcast_title": "Minds and Machines",
	"podcast_overview": "Two researchers argue about AI.",
	"featuring": "Ada, Alan",
	"themes": [
		{"chapter_number": 2, "theme_title": "Ethics", "theme_gist": "Who is responsible."},
		{"chapter_number": 1, "theme_title": "Intro", "theme_gist": "What AI is.", "big_ideas": ["• Tools \"autocomplete\""]}
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
	require.NoError(t, Migrate(db))
	return db
}

func seedContent(t *testing.T, db *gorm.DB) models.ContentItem {
	t.Helper()
	item := models.ContentItem{
		PodcastID:   "42",
		PodcastLink: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Metadata:    datatypes.JSON(seededMetadata),
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func TestResolveContentItem(t *testing.T) {
	db := newTestDB(t)
	item := seedContent(t, db)
	repo := New(db)

	ref, err := repo.ResolveContentItem(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, ContentRef{ID: item.ID, PodcastID: "42", Title: "Minds and Machines", Link: item.PodcastLink}, ref)

	_, err = repo.ResolveContentItem(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrContentNotFound)
}

func TestGetOverviewOrdersThemesAndDerivesThumbnail(t *testing.T) {
	db := newTestDB(t)
	seedContent(t, db)

	ov, err := New(db).GetOverview(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, ov.Themes, 2)
	assert.Equal(t, "Intro", ov.Themes[0].ThemeTitle)
	assert.Equal(t, "Two researchers argue about AI.", ov.Overview)
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", ov.ThumbnailURL)
}

func TestSaveIdeasAppendsOnEveryRun(t *testing.T) {
	db := newTestDB(t)
	repo := New(db)
	ref, err := repo.ResolveContentItem(context.Background(), seedContent(t, db).PodcastID)
	require.NoError(t, err)
	responses := []wizard.Response{
		{ThemeTitle: "Intro", ChapterNumber: 1, UserExplanation: "about AI"},
		{ThemeTitle: "Ethics", UserExplanation: "matters"},
	}

	require.NoError(t, repo.SaveIdeas(context.Background(), "user-1", ref, responses))
	require.NoError(t, repo.SaveIdeas(context.Background(), "user-1", ref, responses))

	ideas, err := repo.ListUserIdeas(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, ideas, 4)
	assert.Equal(t, "Minds and Machines", ideas[0].PodcastTitle)
	for _, idea := range ideas {
		if idea.ThemeTitle == "Intro" {
			require.NotNil(t, idea.ThemeID)
			assert.Equal(t, uint(1), *idea.ThemeID)
		} else {
			assert.Nil(t, idea.ThemeID)
		}
	}
}

func TestUpsertFeedEntryKeepsOneRowPerPair(t *testing.T) {
	db := newTestDB(t)
	repo := New(db)
	ref, err := repo.ResolveContentItem(context.Background(), seedContent(t, db).PodcastID)
	require.NoError(t, err)
	in := FeedInput{UserID: "user-1", Content: ref, Profile: ProfileSnapshot{TwinName: "Echo"}, WhyListen: "first"}

	first, err := repo.UpsertFeedEntry(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "minds-and-machines", first.Slug)

	in.WhyListen = "second"
	second, err := repo.UpsertFeedEntry(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "second", second.WhyListen)

	var count int64
	require.NoError(t, db.Model(&models.FeedEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPersistCompletionIsAtomic(t *testing.T) {
	db := newTestDB(t)
	repo := New(db)
	ref, err := repo.ResolveContentItem(context.Background(), seedContent(t, db).PodcastID)
	require.NoError(t, err)
	in := CompletionInput{
		UserID:  "user-1",
		Content: ref,
		Payload: wizard.Payload{
			Themes:    []wizard.Response{{ThemeTitle: "Intro", UserExplanation: "about AI"}},
			WhyListen: "Everyone should care",
		},
	}

	entry, err := repo.PersistCompletion(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Everyone should care", entry.WhyListen)

	require.NoError(t, db.Migrator().DropTable(&models.FeedEntry{}))
	_, err = repo.PersistCompletion(context.Background(), in)
	assert.ErrorIs(t, err, ErrWriteFailed)

	var ideas int64
	require.NoError(t, db.Model(&models.UserIdea{}).Count(&ideas).Error)
	assert.Equal(t, int64(1), ideas, "failed completion must not leave ideas behind")
}

func TestProfileLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := New(db)
	ctx := context.Background()

	_, err := repo.GetProfile(ctx, "user-1")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	p, err := repo.EnsureProfile(ctx, "user-1", "a@example.com")
	require.NoError(t, err)
	assert.False(t, p.ProfileCompleted)

	again, err := repo.EnsureProfile(ctx, "user-1", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", again.Email)

	bio := "listens on the bus"
	p, err = repo.CompleteProfile(ctx, "user-1", "Ada", &bio)
	require.NoError(t, err)
	assert.True(t, p.ProfileCompleted)
	assert.Equal(t, "Ada", p.Name)

	avatar := "https://cdn.example.com/a.png"
	p, err = repo.UpdateTwin(ctx, "user-1", "Echo", &avatar)
	require.NoError(t, err)
	assert.Equal(t, "Echo", p.TwinName)
	require.NotNil(t, p.AvatarURL)
	assert.Equal(t, avatar, *p.AvatarURL)

	_, err = repo.UpdateTwin(ctx, "nobody", "x", nil)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestBuildGraphLinksUsersSharingAPodcast(t *testing.T) {
	entries := []models.FeedEntry{
		{UserID: "a", PodcastID: 1, PodcastTitle: "P1", WhyListen: "wa", PodcastLink: "https://youtu.be/dQw4w9WgXcQ"},
		{UserID: "b", PodcastID: 1, PodcastTitle: "P1", WhyListen: "wb"},
		{UserID: "b", PodcastID: 2, PodcastTitle: "P2"},
		{UserID: "c", PodcastID: 3, PodcastTitle: "P3"},
	}

	g := BuildGraph(entries)
	assert.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "a", g.Edges[0].Source)
	assert.Equal(t, "b", g.Edges[0].Target)
	assert.Equal(t, "a-b-1", g.Edges[0].ID)
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", g.Edges[0].ThumbnailURL)
}
