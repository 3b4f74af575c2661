package model

import (
	"context"
	"io"
)

// BlobStore keeps uploaded document contents. Pointers are opaque to callers.
type BlobStore interface {
	Store(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error)
	PublicURL(ctx context.Context, pointer string) (string, error)
	Delete(ctx context.Context, pointer string) error
}
