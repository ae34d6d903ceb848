// Package storage provides blob stores for uploaded and generated workbooks.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"milkportal/ports"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// New returns the blob store for driver
func New(driver, basePath string, s3opts S3Options) (ports.BlobStorage, error) {
	switch strings.ToLower(driver) {
	case "", DriverLocal:
		return NewLocalStorage(basePath), nil
	case DriverS3:
		return NewS3Storage(s3opts)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// ReadAll fetches a whole blob into memory
func ReadAll(ctx context.Context, store ports.BlobStorage, key string) ([]byte, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// SubmissionKey is where the original upload of a submission is kept
func SubmissionKey(id, filename string) string {
	return path.Join("submissions", id, safeName(filename))
}

// TestSetKey is where a generated test-set workbook is kept
func TestSetKey(id, filename string) string {
	return path.Join("testsets", id, safeName(filename))
}

func safeName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "upload"
	}
	return name
}
