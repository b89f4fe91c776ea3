package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"pdfstore/internal/config"
)

// ErrInvalidKey is returned for keys that do not name a plain file in the root.
var ErrInvalidKey = errors.New("invalid object key")

// localStorage writes objects as files directly under a root directory.
// It is safe for concurrent use; distinct keys never contend.
type localStorage struct {
	root string
}

// NewLocal returns a filesystem backend rooted at cfg.Path, creating the directory if needed.
func NewLocal(cfg config.StorageConfig) (Storage, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: storage root path is required", config.ErrConfig)
	}
	root, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &localStorage{root: root}, nil
}

// Put copies r into root/key. The bytes land in a temp file first and are renamed
// into place, so a failed write never leaves a truncated file under key.
func (l *localStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return ObjectInfo{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	tmp, err := os.CreateTemp(l.root, ".upload-*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return ObjectInfo{}, fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return ObjectInfo{}, fmt.Errorf("sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return ObjectInfo{}, fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, filepath.Join(l.root, key)); err != nil {
		_ = os.Remove(tmpName)
		return ObjectInfo{}, fmt.Errorf("rename %s: %w", key, err)
	}

	return ObjectInfo{
		Key:          key,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}
