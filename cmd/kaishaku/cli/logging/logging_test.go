package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestLog_ContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelDebug)
	t.Cleanup(Close)

	ctx := WithSession(WithComponent(context.Background(), "session"), "exp1")
	Info(ctx, "checkout", slog.String("commit", "abc123"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "checkout", rec["msg"])
	assert.Equal(t, "session", rec["component"])
	assert.Equal(t, "exp1", rec["session"])
	assert.Equal(t, "abc123", rec["commit"])
}

func TestLog_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelWarn)
	t.Cleanup(Close)

	ctx := context.Background()
	Debug(ctx, "hidden")
	Info(ctx, "hidden too")
	Warn(ctx, "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestLogDuration(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelDebug)
	t.Cleanup(Close)

	LogDuration(context.Background(), slog.LevelDebug, "git", time.Now().Add(-5*time.Millisecond))
	assert.Contains(t, buf.String(), `"duration_ms"`)
}

func TestInit_WritesToFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Init(root))
	t.Cleanup(Close)

	Info(WithComponent(context.Background(), "cli"), "started")
	Close()

	data, err := os.ReadFile(filepath.Join(root, LogsDirName, LogFileName))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"component":"cli"`), "log file: %s", data)
}

func TestClose_DiscardsAfterwards(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelDebug)
	Close()

	Error(context.Background(), "after close")
	assert.Empty(t, buf.String())
}
