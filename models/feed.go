package models

import "time"

// FeedEntry is the public why-listen post. One row per (user, podcast).
type FeedEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"type:text;not null;uniqueIndex:idx_feed_user_podcast" json:"user_id"`
	PodcastID    uint      `gorm:"not null;uniqueIndex:idx_feed_user_podcast" json:"podcast_id"`
	PodcastTitle string    `gorm:"size:255" json:"podcast_title"`
	PodcastLink  string    `gorm:"type:text" json:"podcast_link"`
	TwinName     string    `gorm:"size:150" json:"twin_name"`
	AvatarURL    *string   `gorm:"type:text" json:"avatar_url"`
	WhyListen    string    `gorm:"type:text;not null" json:"why_listen"`
	Slug         string    `gorm:"size:255;index" json:"slug"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FeedEntry) TableName() string { return "feed" }
