// internal/utils/utils_test.go
package utils

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLoggerToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(&buf, LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	var l Logger = logger
	l.Debug("hidden")
	l.Info("parsed batch", "added", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"added":3`)

	_, err = NewLoggerTo(&buf, LogConfig{Format: "xml"})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}

func TestHostLimiterSpacesSameHost(t *testing.T) {
	hl := NewHostLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, hl.Wait(ctx, "a.example.com"))
	require.NoError(t, hl.Wait(ctx, "b.example.com"))
	assert.Less(t, time.Since(start), 40*time.Millisecond, "different hosts must not wait on each other")

	require.NoError(t, hl.Wait(ctx, "a.example.com"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestHostLimiterHonoursContext(t *testing.T) {
	hl := NewHostLimiter(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, hl.Wait(ctx, "slow.example.com"))
	err := hl.Wait(ctx, "slow.example.com")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "rate") || strings.Contains(err.Error(), "context"))
}
