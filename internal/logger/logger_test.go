package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	Init(LoggingConfig{Level: "info"})

	log := Get(nil)
	require.NotNil(t, log)

	// Sync on stderr may fail on some platforms.
	_ = Sync()
}

func TestGetWithoutInit(t *testing.T) {
	globalLogger = nil
	assert.NotNil(t, Get(nil))
	assert.NotNil(t, Get(context.Background()))
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggingConfig{Level: "debug"}, &buf)

	ctx := WithContext(context.Background(), l)
	Get(ctx).Debugw("segment opened", "session", 3)

	assert.Contains(t, buf.String(), "segment opened")
	assert.Contains(t, buf.String(), "session")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggingConfig{Level: "warn"}, &buf)

	l.Info("dropped")
	l.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("chatty"))
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "heatlog.log")
	l := New(LoggingConfig{Level: "info", Path: path, MaxSize: 1}, os.Stderr)

	l.Infow("run finished", "rows", 12)
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run finished")
}
