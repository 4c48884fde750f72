package storage

import (
	"context"
	"errors"

	"videotube/internal/domain"
)

// ErrEmptyPath is returned when Upload is called without a local file.
var ErrEmptyPath = errors.New("local path is required")

// Options conveys upload destination metadata.
type Options struct {
	Bucket    string
	KeyPrefix string
	// PublicURL, when set, is used as the base of returned object URLs
	// instead of the location reported by the store (CDN or public endpoint).
	PublicURL string
}

// Uploader stores local media files in remote object storage.
// Upload must be safe to call concurrently for independent paths.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*domain.UploadResult, error)
	Delete(ctx context.Context, key string) error
}
