package storage

import "context"

// ObjectStore abstracts the shared binary-object backend profile images live in.
type ObjectStore interface {
	// Upload writes content under bucket/name with the given content type.
	Upload(ctx context.Context, bucket, name string, content []byte, contentType string) error
	// PublicURL resolves the public address of an uploaded object.
	PublicURL(bucket, name string) string
}
