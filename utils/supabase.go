package utils

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// SupabaseStorage uploads to and deletes from public Supabase buckets.
type SupabaseStorage struct {
	client  *storage.Client
	baseURL string
}

func NewSupabaseStorage(supabaseURL, key string) *SupabaseStorage {
	base := strings.TrimRight(supabaseURL, "/")
	return &SupabaseStorage{
		client:  storage.NewClient(base+"/storage/v1", key, map[string]string{"apikey": key}),
		baseURL: base,
	}
}

// PublicURL is the URL of an object in a public bucket.
func (s *SupabaseStorage) PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, objectPath)
}

// UploadBytes stores data at bucket/objectPath and returns its public URL.
func (s *SupabaseStorage) UploadBytes(bucket, objectPath, contentType string, data []byte) (string, error) {
	options := storage.FileOptions{
		ContentType: &contentType,
	}
	if _, err := s.client.UploadFile(bucket, objectPath, bytes.NewReader(data), options); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, objectPath, err)
	}
	return s.PublicURL(bucket, objectPath), nil
}

// ParseObjectURL splits a storage URL containing "/storage/v1/object/" into bucket and object path.
func ParseObjectURL(publicURL string) (string, string, error) {
	idx := strings.Index(publicURL, "/storage/v1/object/")
	if idx == -1 {
		return "", "", fmt.Errorf("not a storage object url: %s", publicURL)
	}
	rest := strings.TrimPrefix(publicURL[idx+len("/storage/v1/object/"):], "public/")

	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot parse bucket and object from %s", publicURL)
	}
	object := parts[1]
	if q := strings.Index(object, "?"); q != -1 {
		object = object[:q]
	}
	if u, err := url.PathUnescape(object); err == nil {
		object = u
	}
	return parts[0], object, nil
}

// DeleteByURL removes the object behind a public URL. Empty URLs are ignored.
func (s *SupabaseStorage) DeleteByURL(publicURL string) error {
	if publicURL == "" {
		return nil
	}
	bucket, object, err := ParseObjectURL(publicURL)
	if err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(bucket, []string{object}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, object, err)
	}
	return nil
}
