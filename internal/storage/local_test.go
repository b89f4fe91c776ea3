package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pdfstore/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestNewLocal(t *testing.T) {
	t.Run("missing root is a config error", func(t *testing.T) {
		s, err := NewLocal(config.StorageConfig{})
		assert.ErrorIs(t, err, config.ErrConfig)
		assert.Nil(t, s)
	})

	t.Run("creates root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "pdfs")
		s, err := NewLocal(config.StorageConfig{Path: root})
		require.NoError(t, err)
		assert.NotNil(t, s)

		st, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, st.IsDir())
	})
}

func TestLocalStorage_Put(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocal(config.StorageConfig{Path: root})
	require.NoError(t, err)

	t.Run("writes bytes under key", func(t *testing.T) {
		info, err := s.Put(ctx, "abc.pdf", strings.NewReader("%PDF-1.4"), PutObjectOptions{Size: 8, ContentType: "application/pdf"})
		require.NoError(t, err)
		assert.Equal(t, "abc.pdf", info.Key)
		assert.Equal(t, int64(8), info.Size)

		got, err := os.ReadFile(filepath.Join(root, "abc.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", string(got))
	})

	t.Run("overwrites on collision", func(t *testing.T) {
		_, err := s.Put(ctx, "same.pdf", strings.NewReader("first"), PutObjectOptions{Size: -1})
		require.NoError(t, err)
		_, err = s.Put(ctx, "same.pdf", strings.NewReader("second"), PutObjectOptions{Size: -1})
		require.NoError(t, err)

		got, err := os.ReadFile(filepath.Join(root, "same.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("rejects keys outside root", func(t *testing.T) {
		for _, key := range []string{"", "..", "../escape.pdf", "sub/dir.pdf"} {
			_, err := s.Put(ctx, key, bytes.NewReader(nil), PutObjectOptions{})
			assert.ErrorIs(t, err, ErrInvalidKey, key)
		}
	})

	t.Run("failed copy leaves no file", func(t *testing.T) {
		_, err := s.Put(ctx, "broken.pdf", failingReader{}, PutObjectOptions{})
		assert.Error(t, err)

		_, statErr := os.Stat(filepath.Join(root, "broken.pdf"))
		assert.True(t, os.IsNotExist(statErr))

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), ".upload-"), "temp file left behind: %s", e.Name())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Put(cctx, "late.pdf", strings.NewReader("x"), PutObjectOptions{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNew(t *testing.T) {
	_, err := New(&config.AppConfig{Storage: config.StorageConfig{Backend: "tape"}})
	assert.ErrorIs(t, err, config.ErrConfig)

	s, err := New(&config.AppConfig{Storage: config.StorageConfig{Backend: config.StorageLocal, Path: t.TempDir()}})
	assert.NoError(t, err)
	assert.NotNil(t, s)
}
