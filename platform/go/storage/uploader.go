package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadResult is the durable outcome of the image upload pipeline.
type UploadResult struct {
	PublicURL string
}

// UploaderConfig wires the upload pipeline.
type UploaderConfig struct {
	Store  ObjectStore
	Bucket string
	Logger *zap.Logger

	// Now and ReadFile are injectable for tests; nil keeps the defaults.
	Now      func() time.Time
	ReadFile func(path string) ([]byte, error)
}

// Uploader converts a local media reference into a publicly addressable object.
// References that are already remote pass through untouched.
type Uploader struct {
	store    ObjectStore
	bucket   string
	logger   *zap.Logger
	now      func() time.Time
	readFile func(path string) ([]byte, error)
}

func NewUploader(cfg UploaderConfig) (*Uploader, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ReadFile == nil {
		cfg.ReadFile = os.ReadFile
	}

	return &Uploader{
		store:    cfg.Store,
		bucket:   cfg.Bucket,
		logger:   cfg.Logger,
		now:      cfg.Now,
		readFile: cfg.ReadFile,
	}, nil
}

// Upload resolves ref into a public URL. http(s) references are returned
// unchanged without touching the store; local references are read, named and
// uploaded exactly once. Any failure is returned so the enclosing profile save
// aborts instead of persisting a stale image reference.
func (u *Uploader) Upload(ctx context.Context, ref string) (UploadResult, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return UploadResult{}, fmt.Errorf("image reference is required")
	}

	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return UploadResult{PublicURL: ref}, nil
	}

	path := strings.TrimPrefix(ref, "file://")
	content, err := u.readFile(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("read image %s: %w", path, err)
	}

	name := u.objectName(path)
	if err := u.store.Upload(ctx, u.bucket, name, content, contentTypeForPath(path)); err != nil {
		return UploadResult{}, fmt.Errorf("upload image: %w", err)
	}

	url := u.store.PublicURL(u.bucket, name)
	u.logger.Info("image uploaded",
		zap.String("bucket", u.bucket),
		zap.String("object", name),
		zap.Int("bytes", len(content)),
	)
	return UploadResult{PublicURL: url}, nil
}

// objectName produces a collision-resistant, timestamp-based object name. The
// uuid suffix keeps two uploads within the same millisecond apart.
func (u *Uploader) objectName(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = ".jpg"
	}
	short := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("profile_%d_%s%s", u.now().UnixMilli(), short, ext)
}

func contentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
