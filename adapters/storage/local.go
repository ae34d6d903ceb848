package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"milkportal/domain/core"
	"milkportal/ports"
)

// LocalStorage keeps blobs as files under a base directory
type LocalStorage struct {
	basePath  string
	chunkSize int
}

var _ ports.BlobStorage = (*LocalStorage)(nil)

// NewLocalStorage creates a file-backed blob store rooted at basePath
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath, chunkSize: 32 * 1024}
}

// Put writes the blob atomically: data lands in a temp file that is renamed into place
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer os.Remove(tmp.Name())

	buf := make([]byte, s.chunkSize)
	if _, err := io.CopyBuffer(tmp, &contextReader{ctx: ctx, r: r}, buf); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

// Get opens the blob; a missing key returns core.ErrNotFound
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.NewNotFoundError("blob", key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the blob; deleting a missing key is not an error
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether the blob is present
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// path maps a slash-separated key inside the base directory
func (s *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(key))
	if clean == "/" {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
