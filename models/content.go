package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// ContentItem is a processed podcast episode. Rows are written by the
// ingestion pipeline; the app only reads them.
type ContentItem struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	PodcastID    string         `gorm:"size:64;uniqueIndex;not null" json:"podcast_id"`
	PodcastTitle string         `gorm:"size:255" json:"podcast_title"`
	PodcastLink  string         `gorm:"type:text" json:"podcast_link"`
	Metadata     datatypes.JSON `json:"metadata"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (ContentItem) TableName() string { return "overview_embed" }

type OverviewMetadata struct {
	PodcastTitle    string  `json:"podcast_title"`
	PodcastOverview string  `json:"podcast_overview"`
	ThumbnailURL    string  `json:"thumbnail_url"`
	Featuring       string  `json:"featuring"`
	NumberOfThemes  int     `json:"number_of_themes"`
	Themes          []Theme `json:"themes"`
}

// DecodeMetadata parses the metadata column and orders themes by chapter.
func (c ContentItem) DecodeMetadata() (OverviewMetadata, error) {
	var meta OverviewMetadata
	if len(c.Metadata) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(c.Metadata, &meta); err != nil {
		return meta, fmt.Errorf("decode metadata for podcast %s: %w", c.PodcastID, err)
	}
	sort.SliceStable(meta.Themes, func(i, j int) bool {
		return meta.Themes[i].ChapterNumber < meta.Themes[j].ChapterNumber
	})
	return meta, nil
}

// Title prefers the column and falls back to the metadata title.
func (c ContentItem) Title(meta OverviewMetadata) string {
	if c.PodcastTitle != "" {
		return c.PodcastTitle
	}
	return meta.PodcastTitle
}
