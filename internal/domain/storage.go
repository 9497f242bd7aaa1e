package domain

import (
	"context"
	"time"
)

// ObjectStorage is the bucket holding event images and photoshoot galleries.
type ObjectStorage interface {
	PresignUpload(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
	// ListPrefixes returns the immediate child "directories" below prefix, without the
	// prefix and trailing slash.
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	PublicURL(key string) string
	// KeyFromURL maps a public URL back to its object key. ok is false for URLs
	// outside this bucket.
	KeyFromURL(url string) (key string, ok bool)
}

// OrphanedObject is a storage object whose deletion failed after its database row was
// removed. The janitor retries it.
type OrphanedObject struct {
	ID        string
	ObjectKey string
	Reason    string
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrphanedObjectRepository stores pending storage deletions.
type OrphanedObjectRepository interface {
	Record(ctx context.Context, key, reason, lastErr string) error
	ListPending(ctx context.Context, maxAttempts, limit int) ([]*OrphanedObject, error)
	Resolve(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, lastErr string) error
}

// GalleryService lists photoshoot galleries stored in object storage.
type GalleryService interface {
	ListYears(ctx context.Context) ([]string, error)
	ListShoots(ctx context.Context, year string) ([]string, error)
	ListPhotos(ctx context.Context, year, shoot string) ([]string, error)
}
