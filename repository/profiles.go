package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/podbrah/podbrah-backend/models"
)

func (r *Repository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return &p, nil
}

// EnsureProfile creates an incomplete profile on first sign-in.
func (r *Repository) EnsureProfile(ctx context.Context, userID, email string) (*models.Profile, error) {
	p, err := r.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	row := models.Profile{ID: userID, Email: email, ProfileCompleted: false}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return r.GetProfile(ctx, userID)
}

func (r *Repository) updateProfile(ctx context.Context, userID string, fields map[string]interface{}) (*models.Profile, error) {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", userID).Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrProfileNotFound
	}
	return r.GetProfile(ctx, userID)
}

func (r *Repository) CompleteProfile(ctx context.Context, userID, name string, bio *string) (*models.Profile, error) {
	return r.updateProfile(ctx, userID, map[string]interface{}{
		"name":              name,
		"bio":               bio,
		"profile_completed": true,
	})
}

func (r *Repository) UpdateTwin(ctx context.Context, userID, twinName string, avatarURL *string) (*models.Profile, error) {
	fields := map[string]interface{}{
		"twin_name":         twinName,
		"profile_completed": true,
	}
	if avatarURL != nil {
		fields["avatar_url"] = *avatarURL
	}
	return r.updateProfile(ctx, userID, fields)
}
