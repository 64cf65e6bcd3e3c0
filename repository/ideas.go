package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/podbrah/podbrah-backend/models"
	"github.com/podbrah/podbrah-backend/wizard"
)

func ideaRows(userID string, content ContentRef, responses []wizard.Response) []models.UserIdea {
	rows := make([]models.UserIdea, 0, len(responses))
	for _, r := range responses {
		rows = append(rows, models.UserIdea{
			UserID:             userID,
			PodcastID:          content.ID,
			PodcastTitle:       content.Title,
			ThemeTitle:         r.ThemeTitle,
			ThemeID:            themeID(r.ChapterNumber),
			UserInterpretation: r.UserExplanation,
		})
	}
	return rows
}

// themeID is the theme's chapter number; metadata themes have no other stable key.
func themeID(chapter int) *uint {
	if chapter <= 0 {
		return nil
	}
	id := uint(chapter)
	return &id
}

func saveIdeas(tx *gorm.DB, userID string, content ContentRef, responses []wizard.Response) error {
	if len(responses) == 0 {
		return nil
	}
	rows := ideaRows(userID, content, responses)
	return tx.Create(&rows).Error
}

// SaveIdeas inserts one row per response in a single transaction.
// Repeat runs for the same podcast add new rows.
func (r *Repository) SaveIdeas(ctx context.Context, userID string, content ContentRef, responses []wizard.Response) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveIdeas(tx, userID, content, responses)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func (r *Repository) ListUserIdeas(ctx context.Context, userID string) ([]models.UserIdea, error) {
	var ideas []models.UserIdea
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&ideas).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return ideas, nil
}
