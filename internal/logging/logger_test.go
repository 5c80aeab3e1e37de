package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected LogLevel
		wantErr  bool
	}{
		{"silent", LevelSilent, false},
		{"error", LevelError, false},
		{"warn", LevelWarn, false},
		{"info", LevelInfo, false},
		{"verbose", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"", LevelInfo, false},
		{"chatty", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	ctx := context.Background()

	t.Run("info hides debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})

		logger.Debug(ctx, "hidden")
		logger.Info(ctx, "shown", "key", "value")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "shown")
		assert.Contains(t, out, "key=value")
	})

	t.Run("silent drops everything", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&LoggerConfig{Level: LevelSilent, Output: &buf})

		logger.Info(ctx, "info")
		logger.Error(ctx, errors.New("boom"), "error")
		logger.Fatal(ctx, errors.New("boom"), "fatal")

		assert.Empty(t, buf.String())
	})

	t.Run("error includes cause", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&LoggerConfig{Level: LevelError, Output: &buf})

		logger.Warn(ctx, nil, "warned")
		logger.Error(ctx, errors.New("disk full"), "clean failed")

		out := buf.String()
		assert.NotContains(t, out, "warned")
		assert.Contains(t, out, "clean failed")
		assert.Contains(t, out, "disk full")
	})
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LevelDebug, Output: &buf})

	logger := base.WithComponent("resolver").With("env", "dev")
	logger.Debug(context.Background(), "resolved")

	out := buf.String()
	assert.Contains(t, out, "component=resolver")
	assert.Contains(t, out, "env=dev")
}

func TestSuppressed(t *testing.T) {
	t.Setenv(SuppressEnv, "")
	assert.False(t, Suppressed())

	t.Setenv(SuppressEnv, "1")
	assert.True(t, Suppressed())
}
