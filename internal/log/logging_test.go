package log

import (
	"bytes"
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
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestConsoleSplit(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, closers, err := setupLogger("debug", "", &stdout, &stderr)
	require.NoError(t, err)
	assert.Empty(t, closers)

	logger.Debug("polled")
	logger.Warn("conflict")
	logger.Error("failed")
	logger.Log(t.Context(), LevelTrace, "raw")

	assert.Contains(t, stdout.String(), "polled")
	assert.Contains(t, stdout.String(), "conflict")
	assert.NotContains(t, stdout.String(), "failed")
	assert.NotContains(t, stdout.String(), "raw", "trace is below debug")
	assert.Contains(t, stderr.String(), "failed")
	assert.NotContains(t, stderr.String(), "conflict")
}

func TestTraceLevelName(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, _, err := setupLogger("trace", "", &stdout, &stderr)
	require.NoError(t, err)

	logger.Log(t.Context(), LevelTrace, "raw")
	assert.Contains(t, stdout.String(), "level=TRACE")
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padmap.log")
	var stdout, stderr bytes.Buffer
	logger, closers, err := setupLogger("info", path, &stdout, &stderr)
	require.NoError(t, err)
	require.Len(t, closers, 1)

	logger.Info("saved", "path", "pad.json")
	require.NoError(t, closers[0].Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "saved")
	assert.Contains(t, stderr.String(), "saved")
	assert.Empty(t, stdout.String())
}

func TestRawLogger(t *testing.T) {
	var buf bytes.Buffer
	r := &rawLogger{w: &buf, now: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }}

	r.Log("xinput0", []byte{0x01, 0xab, 0x00})
	r.Log("xinput0", nil)

	assert.Equal(t, "2024/05/01 12:00:00.000 xinput0 report: 3 bytes, hex: 01 ab 00\n", buf.String())
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	NewRaw(nil).Log("none", []byte{1})
}
