package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore implements ObjectStore on Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore builds the GCS-backed store. credentialsFile is optional; when
// empty the client falls back to ambient application default credentials.
func NewGCSStore(ctx context.Context, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Upload(ctx context.Context, bucket, name string, content []byte, contentType string) error {
	w := s.client.Bucket(bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s/%s: %w", bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s/%s: %w", bucket, name, err)
	}
	return nil
}

func (s *GCSStore) PublicURL(bucket, name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, name)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ ObjectStore = (*GCSStore)(nil)
