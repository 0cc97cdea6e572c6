package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
)

// GCSBlob stores each key as an object under prefix in a GCS bucket.
type GCSBlob struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSBlob uses Application Default Credentials.
func NewGCSBlob(ctx context.Context, bucket, prefix string) (*GCSBlob, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs backend: bucket: %w", ErrMissingOption)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSBlob{client: client, bucket: bucket, prefix: prefix}, nil
}

func (b *GCSBlob) object(key string) *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(path.Join(b.prefix, key+".json"))
}

func (b *GCSBlob) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := b.object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gcs read: %w", err)
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

func (b *GCSBlob) Put(ctx context.Context, key string, data []byte) error {
	w := b.object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close: %w", err)
	}
	return nil
}

func (b *GCSBlob) Close() error {
	return b.client.Close()
}
