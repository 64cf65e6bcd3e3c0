package models

import "time"

// UserIdea is one captured explanation of a theme. Rows are only inserted.
type UserIdea struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             string    `gorm:"type:text;not null;index" json:"user_id"`
	PodcastID          uint      `gorm:"not null;index" json:"podcast_id"`
	PodcastTitle       string    `gorm:"size:255" json:"podcast_title"`
	ThemeTitle         string    `gorm:"size:255;not null" json:"theme_title"`
	ThemeID            *uint     `json:"theme_id"`
	UserInterpretation string    `gorm:"type:text;not null" json:"user_interpretation"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserIdea) TableName() string { return "user_ideas" }
