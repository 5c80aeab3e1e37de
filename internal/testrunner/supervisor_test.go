package testrunner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/errors"
	"github.com/conneroisu/bundlekit/internal/logging"
)

// script writes an executable shell script and returns its path.
func script(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newSupervisor(settings config.TestSettings) (*Supervisor, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelDebug, Output: &buf})
	return &Supervisor{Settings: settings, Logger: logger}, &buf
}

// lines returns the log lines containing substr.
func lines(buf *bytes.Buffer, substr string) []string {
	var out []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, substr) {
			out = append(out, line)
		}
	}
	return out
}

func TestInvocation(t *testing.T) {
	s := &Supervisor{Settings: config.TestSettings{
		Runner:      "mocha",
		Args:        []string{"--colors", "test"},
		WatchArgs:   []string{"--colors", "--watch"},
		CoverRunner: "node_modules/istanbul/lib/cli.js",
		CoverArgs:   []string{"cover", "node_modules/mocha/bin/_mocha", "--", "--colors", "test"},
	}}

	tests := []struct {
		name         string
		cmd          config.Command
		expectedName string
		expectedArgs []string
	}{
		{"single pass", config.Command{}, "mocha", []string{"--colors", "test"}},
		{"watch", config.Command{Watch: true}, "mocha", []string{"--colors", "--watch"}},
		{"cover", config.Command{Cover: true}, "node_modules/istanbul/lib/cli.js",
			[]string{"cover", "node_modules/mocha/bin/_mocha", "--", "--colors", "test"}},
		{"cover wins over watch", config.Command{Cover: true, Watch: true}, "node_modules/istanbul/lib/cli.js",
			[]string{"cover", "node_modules/mocha/bin/_mocha", "--", "--colors", "test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args := s.Invocation(tt.cmd)
			assert.Equal(t, tt.expectedName, name)
			assert.Equal(t, tt.expectedArgs, args)
		})
	}
}

func TestRunRelaysStreams(t *testing.T) {
	runner := script(t, "runner", "echo 'passing tests'\necho 'failing assertion' 1>&2")

	t.Run("stderr is error level without cover", func(t *testing.T) {
		s, buf := newSupervisor(config.TestSettings{Runner: runner})
		require.NoError(t, s.Run(context.Background(), config.Command{}))

		out := lines(buf, "passing tests")
		require.Len(t, out, 1)
		assert.Contains(t, out[0], "level=INFO")

		errLines := lines(buf, "failing assertion")
		require.Len(t, errLines, 1)
		assert.Contains(t, errLines[0], "level=ERROR")
	})

	t.Run("stderr is info level under cover", func(t *testing.T) {
		s, buf := newSupervisor(config.TestSettings{CoverRunner: runner})
		require.NoError(t, s.Run(context.Background(), config.Command{Cover: true}))

		errLines := lines(buf, "failing assertion")
		require.Len(t, errLines, 1)
		assert.Contains(t, errLines[0], "level=INFO")
	})
}

func TestRunPassesArguments(t *testing.T) {
	runner := script(t, "runner", `echo "args: $*"`)
	s, buf := newSupervisor(config.TestSettings{Runner: runner, WatchArgs: []string{"--colors", "--watch"}})

	require.NoError(t, s.Run(context.Background(), config.Command{Watch: true}))
	assert.Len(t, lines(buf, "args: --colors --watch"), 1)
}

func TestRunRelaysOversizedLines(t *testing.T) {
	// 2 MiB of dots with no newline, as a dot reporter prints in watch mode.
	runner := script(t, "runner", "head -c 2097152 /dev/zero | tr '\\0' '.'\necho\necho done")
	s, buf := newSupervisor(config.TestSettings{Runner: runner})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, s.Run(ctx, config.Command{}))
	require.NoError(t, ctx.Err())

	assert.Len(t, lines(buf, strings.Repeat(".", 1024)), 2*1024*1024/maxLine)
	assert.Len(t, lines(buf, "msg=done"), 1)
}

func TestRelayChunksLongLines(t *testing.T) {
	input := strings.Repeat("x", maxLine+10) + "\nshort\r\n\ntail"

	var got []string
	require.NoError(t, relay(strings.NewReader(input), func(line string) { got = append(got, line) }))

	require.Len(t, got, 5)
	assert.Equal(t, strings.Repeat("x", maxLine), got[0])
	assert.Equal(t, strings.Repeat("x", 10), got[1])
	assert.Equal(t, []string{"short", "", "tail"}, got[2:])
}

func TestRunNonZeroExit(t *testing.T) {
	runner := script(t, "runner", "echo '1 failing'\nexit 3")
	s, buf := newSupervisor(config.TestSettings{Runner: runner})

	err := s.Run(context.Background(), config.Command{})
	require.Error(t, err)
	assert.True(t, errors.IsProcessError(err))
	assert.Contains(t, err.Error(), "exit_code=3")
	assert.Len(t, lines(buf, "1 failing"), 1)
}

func TestRunMissingRunner(t *testing.T) {
	s, buf := newSupervisor(config.TestSettings{Runner: filepath.Join(t.TempDir(), "no-such-runner")})

	err := s.Run(context.Background(), config.Command{})
	require.Error(t, err)
	assert.True(t, errors.IsProcessError(err))

	failed := lines(buf, "test runner failed to start")
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0], "level=ERROR")
}

func TestRunRejectsUnsafeArguments(t *testing.T) {
	s, _ := newSupervisor(config.TestSettings{Runner: "mocha", Args: []string{"test; rm -rf /"}})

	err := s.Run(context.Background(), config.Command{})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
