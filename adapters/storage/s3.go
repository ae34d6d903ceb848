package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"milkportal/domain/core"
	"milkportal/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options configures an S3-compatible bucket
type S3Options struct {
	Endpoint string
	Region   string
	Key      string
	Secret   string
	Bucket   string
	Prefix   string
}

// S3Storage keeps blobs in an S3-compatible bucket
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ ports.BlobStorage = (*S3Storage)(nil)

// NewS3Storage creates an S3 blob store with static credentials
func NewS3Storage(opts S3Options) (*S3Storage, error) {
	if opts.Key == "" || opts.Secret == "" {
		return nil, fmt.Errorf("key and secret are required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if opts.Region == "" {
		opts.Region = "auto"
	}

	s3opts := s3.Options{
		Region:       opts.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(opts.Key, opts.Secret, ""),
		UsePathStyle: true,
	}
	if opts.Endpoint != "" {
		endpoint := strings.TrimSuffix(opts.Endpoint, "/"+opts.Bucket)
		s3opts.BaseEndpoint = aws.String(endpoint)
	}

	return &S3Storage{
		client: s3.New(s3opts),
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

// Put uploads the blob. The body is buffered so the request can be signed
// and retried; uploads are bounded by the gate's size limit.
func (s *S3Storage) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("failed to read upload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// Get downloads the blob; a missing key returns core.ErrNotFound
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, core.NewNotFoundError("blob", key)
		}
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return result.Body, nil
}

// Delete removes the blob
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks the object with a HEAD request
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check file: %w", err)
}

func (s *S3Storage) objectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}
