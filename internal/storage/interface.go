package storage

import (
	"context"
	"io"
	"time"
)

// BlobStore is the contract consumed from the blob storage collaborator.
// SignedURL mints a fresh, independently expiring retrieval link; it is
// never cached or persisted by callers.
type BlobStore interface {
	Store(ctx context.Context, key string, data io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (url string, expiresAt time.Time, err error)
}
