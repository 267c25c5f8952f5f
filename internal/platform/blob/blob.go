// Package blob stores uploaded images. The S3 implementation talks to any
// S3-compatible endpoint (AWS, MinIO); the memory implementation backs tests
// and local development.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("blob not found")

// Object describes a stored blob.
type Object struct {
	Key         string
	ContentType string
	Size        int64
}

// Store is the image storage port used by the catalog.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, key string) error
}
