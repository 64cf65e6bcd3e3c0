package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/podbrah/podbrah-backend/apperr"
	"github.com/podbrah/podbrah-backend/utils"
)

const MaxAvatarBytes = 5 * 1024 * 1024

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

var ErrInvalidAvatar = apperr.New(apperr.KindValidation, "invalid_avatar", "Avatar must be a JPEG, PNG or GIF image under 5MB")

type AvatarStore interface {
	Upload(ctx context.Context, userID, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// ValidateAvatar checks type and size before anything is uploaded.
func ValidateAvatar(contentType string, size int64) (string, error) {
	ext, ok := avatarExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: content type %q", ErrInvalidAvatar, contentType)
	}
	if size <= 0 || size > MaxAvatarBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidAvatar, size)
	}
	return ext, nil
}

// SupabaseAvatarStore keeps avatars under <userID>/<uuid>.<ext> in one bucket.
type SupabaseAvatarStore struct {
	storage *utils.SupabaseStorage
	bucket  string
}

func NewSupabaseAvatarStore(storage *utils.SupabaseStorage, bucket string) *SupabaseAvatarStore {
	if bucket == "" {
		bucket = "avatars"
	}
	return &SupabaseAvatarStore{storage: storage, bucket: bucket}
}

func (s *SupabaseAvatarStore) Upload(ctx context.Context, userID, contentType string, data []byte) (string, error) {
	ext, err := ValidateAvatar(contentType, int64(len(data)))
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	objectPath := fmt.Sprintf("%s/%s.%s", userID, uuid.NewString(), ext)
	return s.storage.UploadBytes(s.bucket, objectPath, strings.ToLower(contentType), data)
}

// Delete removes a previous avatar. URLs outside this bucket are left alone.
func (s *SupabaseAvatarStore) Delete(ctx context.Context, publicURL string) error {
	bucket, _, err := utils.ParseObjectURL(publicURL)
	if err != nil || bucket != s.bucket {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.storage.DeleteByURL(publicURL)
}
