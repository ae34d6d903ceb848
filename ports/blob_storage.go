package ports

import (
	"context"
	"io"
)

// BlobStorage keeps uploaded and generated files by key
type BlobStorage interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
