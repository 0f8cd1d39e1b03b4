package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesRotatedJSONFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File = filepath.Join(t.TempDir(), "moonbag.log")
	buf := NewLogBuffer(10)

	log, err := New(cfg, WithoutConsole(), WithBuffer(buf))
	require.NoError(t, err)
	log.Info("Bot started")
	require.NoError(t, Sync(log))

	data, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Bot started"`)
	assert.Len(t, buf.GetRecentLogs(0), 1)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "verbose"
	_, err := New(cfg)
	assert.Error(t, err)
}
