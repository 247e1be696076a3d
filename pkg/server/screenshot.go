package server

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// CaptureFunc renders the current scene to an encoded image. Provided by the
// rendering collaborator; the server never interprets the bytes.
type CaptureFunc func(ctx context.Context) ([]byte, error)

// ScreenshotStore persists captured screenshots and returns a location the
// requester can be told about.
type ScreenshotStore interface {
	Save(ctx context.Context, key string, data []byte) (string, error)
}

// DirStore writes screenshots to a local directory.
type DirStore struct {
	Dir string
}

// Save writes data to Dir/key and returns the file path.
func (d *DirStore) Save(_ context.Context, key string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(d.Dir, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// S3Store persists screenshots to an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates a screenshot store on the given bucket. The prefix is
// prepended to every key ("screenshots/").
func NewS3Store(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Save uploads data and returns the s3:// location.
func (s *S3Store) Save(ctx context.Context, key string, data []byte) (string, error) {
	fullKey := s.prefix + key
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
		Metadata: map[string]string{
			"capture-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, fullKey), nil
}
