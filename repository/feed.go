package repository

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/podbrah/podbrah-backend/models"
	"github.com/podbrah/podbrah-backend/utils"
	"github.com/podbrah/podbrah-backend/wizard"
)

// ProfileSnapshot is denormalized onto the feed entry at publish time.
type ProfileSnapshot struct {
	TwinName  string
	AvatarURL *string
}

type FeedInput struct {
	UserID    string
	Content   ContentRef
	Profile   ProfileSnapshot
	WhyListen string
}

type CompletionInput struct {
	UserID  string
	Content ContentRef
	Profile ProfileSnapshot
	Payload wizard.Payload
}

var feedUpdateColumns = []string{"podcast_title", "podcast_link", "twin_name", "avatar_url", "why_listen", "slug", "updated_at"}

func upsertFeed(tx *gorm.DB, in FeedInput) (*models.FeedEntry, error) {
	entry := models.FeedEntry{
		UserID:       in.UserID,
		PodcastID:    in.Content.ID,
		PodcastTitle: in.Content.Title,
		PodcastLink:  in.Content.Link,
		TwinName:     in.Profile.TwinName,
		AvatarURL:    in.Profile.AvatarURL,
		WhyListen:    in.WhyListen,
		Slug:         slug.Make(in.Content.Title),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "podcast_id"}},
		DoUpdates: clause.AssignmentColumns(feedUpdateColumns),
	}).Create(&entry).Error
	if err != nil {
		return nil, err
	}

	var saved models.FeedEntry
	if err := tx.Where("user_id = ? AND podcast_id = ?", in.UserID, in.Content.ID).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpsertFeedEntry keeps exactly one entry per (user, podcast); the last write wins.
func (r *Repository) UpsertFeedEntry(ctx context.Context, in FeedInput) (*models.FeedEntry, error) {
	var entry *models.FeedEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = upsertFeed(tx, in)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return entry, nil
}

// PersistCompletion writes the ideas and the feed entry together or not at all.
func (r *Repository) PersistCompletion(ctx context.Context, in CompletionInput) (*models.FeedEntry, error) {
	var entry *models.FeedEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveIdeas(tx, in.UserID, in.Content, in.Payload.Themes); err != nil {
			return err
		}
		var err error
		entry, err = upsertFeed(tx, FeedInput{
			UserID:    in.UserID,
			Content:   in.Content,
			Profile:   in.Profile,
			WhyListen: in.Payload.WhyListen,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return entry, nil
}

func (r *Repository) ListFeed(ctx context.Context, limit, offset int) ([]models.FeedEntry, error) {
	var entries []models.FeedEntry
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return entries, nil
}

type GraphNode struct {
	ID        string  `json:"id"`
	TwinName  string  `json:"twin_name"`
	AvatarURL *string `json:"avatar_url"`
}

type GraphEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	PodcastTitle string `json:"podcast_title"`
	ThumbnailURL string `json:"thumbnail_url"`
	WhyListen    string `json:"why_listen"`
}

type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// FeedGraph links users who published about the same podcast.
func (r *Repository) FeedGraph(ctx context.Context) (Graph, error) {
	entries, err := r.ListFeed(ctx, 0, 0)
	if err != nil {
		return Graph{}, err
	}
	return BuildGraph(entries), nil
}

// BuildGraph emits one node per user and at most one edge per user pair.
func BuildGraph(entries []models.FeedEntry) Graph {
	g := Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	seenUsers := make(map[string]bool)
	for _, e := range entries {
		if seenUsers[e.UserID] {
			continue
		}
		seenUsers[e.UserID] = true
		g.Nodes = append(g.Nodes, GraphNode{ID: e.UserID, TwinName: e.TwinName, AvatarURL: e.AvatarURL})
	}

	seenPairs := make(map[string]bool)
	for _, a := range entries {
		for _, b := range entries {
			if a.UserID == b.UserID || a.PodcastID != b.PodcastID {
				continue
			}
			key := pairKey(a.UserID, b.UserID)
			if seenPairs[key] {
				continue
			}
			seenPairs[key] = true
			g.Edges = append(g.Edges, GraphEdge{
				ID:           fmt.Sprintf("%s-%s-%d", a.UserID, b.UserID, a.PodcastID),
				Source:       a.UserID,
				Target:       b.UserID,
				PodcastTitle: a.PodcastTitle,
				ThumbnailURL: utils.YouTubeThumbnail(a.PodcastLink),
				WhyListen:    a.WhyListen,
			})
		}
	}
	return g
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
