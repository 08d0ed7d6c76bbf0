package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("transcript missing", "video_id", "dQw4w9WgXcQ")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "transcript missing", rec["msg"])
	assert.Equal(t, "dQw4w9WgXcQ", rec["video_id"])
	assert.Equal(t, "WARN", rec["level"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "DEBUG", Output: &buf})
	require.NoError(t, err)
	logger.Debug("chunked", "chunks", 4)
	assert.Contains(t, buf.String(), "msg=chunked chunks=4")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
