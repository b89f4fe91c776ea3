package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", &buf, time.UTC)
	require.NoError(t, err)

	logger.Info("pdf_stored", zap.String("file_name", "a.pdf"))
	logger.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "pdf_stored", entry["msg"])
	assert.Equal(t, "a.pdf", entry["file_name"])

	ts, ok := entry["ts"].(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud", nil, nil)
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, Location("Not/AZone"))
	assert.Equal(t, "UTC", Location("UTC").String())
}
