package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"pdfstore/internal/config"
)

// PutObjectOptions define optional parameters for writing objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage writes raw upload bytes under a key.
// Writing to an existing key replaces it; callers own key uniqueness.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
}

// New builds the backend selected by cfg.Storage.Backend.
func New(cfg *config.AppConfig) (Storage, error) {
	switch cfg.Storage.Backend {
	case config.StorageLocal:
		return NewLocal(cfg.Storage)
	case config.StorageMinIO:
		return NewMinIO(cfg.MinIO)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrConfig, cfg.Storage.Backend)
	}
}
