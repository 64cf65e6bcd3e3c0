// Package repository is the only place that reads or writes rows for users.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/podbrah/podbrah-backend/apperr"
	"github.com/podbrah/podbrah-backend/models"
	"github.com/podbrah/podbrah-backend/utils"
)

var (
	ErrContentNotFound = apperr.New(apperr.KindNotFound, "content_not_found", "Podcast not found")
	ErrProfileNotFound = apperr.New(apperr.KindNotFound, "profile_not_found", "Profile not found")
	ErrWriteFailed     = apperr.New(apperr.KindUpstream, "write_failed", "Failed to save your results, please try again")
	ErrReadFailed      = apperr.New(apperr.KindUpstream, "read_failed", "Failed to load data, please try again")
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the tables the app owns plus the read-only content table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.ContentItem{},
		&models.UserIdea{},
		&models.FeedEntry{},
	)
}

// ContentRef is the part of a content item the wizard and feed need.
type ContentRef struct {
	ID        uint   `json:"id"`
	PodcastID string `json:"podcast_id"`
	Title     string `json:"podcast_title"`
	Link      string `json:"podcast_link"`
}

type Overview struct {
	ContentRef
	Overview     string         `json:"podcast_overview"`
	ThumbnailURL string         `json:"thumbnail_url"`
	Featuring    string         `json:"featuring"`
	Themes       []models.Theme `json:"themes"`
}

func (r *Repository) findContent(ctx context.Context, externalID string) (*models.ContentItem, error) {
	var item models.ContentItem
	err := r.db.WithContext(ctx).Where("podcast_id = ?", externalID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrContentNotFound, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return &item, nil
}

// ResolveContentItem maps an external podcast id to its internal row.
func (r *Repository) ResolveContentItem(ctx context.Context, externalID string) (ContentRef, error) {
	item, err := r.findContent(ctx, externalID)
	if err != nil {
		return ContentRef{}, err
	}
	meta, err := item.DecodeMetadata()
	if err != nil {
		return ContentRef{}, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return ContentRef{ID: item.ID, PodcastID: item.PodcastID, Title: item.Title(meta), Link: item.PodcastLink}, nil
}

func (r *Repository) GetOverview(ctx context.Context, externalID string) (*Overview, error) {
	item, err := r.findContent(ctx, externalID)
	if err != nil {
		return nil, err
	}
	meta, err := item.DecodeMetadata()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	thumbnail := meta.ThumbnailURL
	if thumbnail == "" {
		thumbnail = utils.YouTubeThumbnail(item.PodcastLink)
	}
	return &Overview{
		ContentRef:   ContentRef{ID: item.ID, PodcastID: item.PodcastID, Title: item.Title(meta), Link: item.PodcastLink},
		Overview:     meta.PodcastOverview,
		ThumbnailURL: thumbnail,
		Featuring:    meta.Featuring,
		Themes:       meta.Themes,
	}, nil
}
