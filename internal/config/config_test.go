package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/bundlekit/internal/errors"
)

func TestLoad(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, s *Settings)
	}{
		{
			name: "defaults",
			setup: func() {
				viper.Reset()
				viper.Set("project.root", root)
			},
			check: func(t *testing.T, s *Settings) {
				assert.Equal(t, EnvProd, s.Env)
				assert.Equal(t, "info", s.LogLevel)
				assert.Equal(t, DefaultOverridesFile, s.Overrides.File)
				assert.Equal(t, "webpack", s.Bundler.Command)
				assert.Equal(t, ".bundlekit/cache", s.Bundler.CacheDir)
				assert.Equal(t, "localhost", s.DevServer.Host)
				assert.Equal(t, 8080, s.DevServer.Port)
				assert.Contains(t, s.DevServer.AllowedOrigins, "http://localhost:8080")
				assert.Equal(t, "mocha", s.Test.Runner)
				assert.Equal(t, []string{"--colors", "test"}, s.Test.Args)
				assert.Equal(t, []string{"--colors", "--watch"}, s.Test.WatchArgs)
				assert.Equal(t, 300*time.Millisecond, s.Watch.Debounce)
				assert.Equal(t, filepath.Base(root), s.Project.Name)
			},
		},
		{
			name: "explicit values",
			setup: func() {
				viper.Reset()
				viper.Set("project.root", root)
				viper.Set("env", "development")
				viper.Set("log-level", "verbose")
				viper.Set("devserver.port", 3000)
				viper.Set("bundler.command", "esbuild")
				viper.Set("watch.debounce", "1s")
			},
			check: func(t *testing.T, s *Settings) {
				assert.Equal(t, EnvDev, s.Env)
				assert.Equal(t, "verbose", s.LogLevel)
				assert.Equal(t, 3000, s.DevServer.Port)
				assert.Equal(t, "esbuild", s.Bundler.Command)
				assert.Equal(t, time.Second, s.Watch.Debounce)
			},
		},
		{
			name: "unknown env",
			setup: func() {
				viper.Reset()
				viper.Set("project.root", root)
				viper.Set("env", "staging")
			},
			expectError: true,
		},
		{
			name: "port out of range",
			setup: func() {
				viper.Reset()
				viper.Set("project.root", root)
				viper.Set("devserver.port", 70000)
			},
			expectError: true,
		},
		{
			name: "injected bundler argument",
			setup: func() {
				viper.Reset()
				viper.Set("project.root", root)
				viper.Set("bundler.args", []string{"--mode", "production; rm -rf /"})
			},
			expectError: true,
		},
		{
			name: "unmarshal failure",
			setup: func() {
				viper.Reset()
				viper.Set("devserver.port", "not-a-port")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NODE_ENV", "")
			tt.setup()
			defer viper.Reset()

			settings, err := Load()
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, settings)
				return
			}
			require.NoError(t, err)
			tt.check(t, settings)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	root := t.TempDir()
	viper.Reset()
	defer viper.Reset()
	BindEnv()

	t.Setenv("NODE_ENV", "")
	t.Setenv("BUNDLEKIT_PROJECT_ROOT", root)
	t.Setenv("BUNDLEKIT_ENV", "dev")
	t.Setenv("BUNDLEKIT_LOG_LEVEL", "warn")
	t.Setenv("BUNDLEKIT_BUNDLER_COMMAND", "esbuild")
	t.Setenv("BUNDLEKIT_BUNDLER_ARGS", "--bundle,--minify")
	t.Setenv("BUNDLEKIT_BUNDLER_TOOL_MODULES", "tools/node_modules")
	t.Setenv("BUNDLEKIT_DEVSERVER_PORT", "3000")
	t.Setenv("BUNDLEKIT_TEST_RUNNER", "jest")
	t.Setenv("BUNDLEKIT_WATCH_DEBOUNCE", "1s")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, root, s.Project.Root)
	assert.Equal(t, EnvDev, s.Env)
	assert.Equal(t, "warn", s.LogLevel)
	assert.Equal(t, "esbuild", s.Bundler.Command)
	assert.Equal(t, []string{"--bundle", "--minify"}, s.Bundler.Args)
	assert.Equal(t, filepath.Join(root, "tools", "node_modules"), s.Bundler.ToolModules)
	assert.Equal(t, 3000, s.DevServer.Port)
	assert.Equal(t, "jest", s.Test.Runner)
	assert.Equal(t, time.Second, s.Watch.Debounce)

	// unset keys keep their defaults
	assert.Equal(t, ".bundlekit/cache", s.Bundler.CacheDir)
	assert.Equal(t, []string{"--colors", "test"}, s.Test.Args)
}

func TestLoadInvalidEnvIsConfigError(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("project.root", t.TempDir())
	viper.Set("env", "qa")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestNormalizeEnv(t *testing.T) {
	tests := []struct {
		explicit string
		nodeEnv  string
		expected string
	}{
		{"", "", EnvProd},
		{"dev", "", EnvDev},
		{"", "dev", EnvDev},
		{"", "development", EnvDev},
		{"prod", "dev", EnvProd},
		{"Production", "", EnvProd},
	}

	for _, tt := range tests {
		t.Run(tt.explicit+"/"+tt.nodeEnv, func(t *testing.T) {
			t.Setenv("NODE_ENV", tt.nodeEnv)
			assert.Equal(t, tt.expected, NormalizeEnv(tt.explicit))
		})
	}
}

func TestPackageName(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, filepath.Base(root), PackageName(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"name":"storefront"}`), 0o644))
	assert.Equal(t, "storefront", PackageName(root))
}

func TestLoadDotEnv(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, LoadDotEnv(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"),
		[]byte("BUNDLEKIT_DOTENV_A=from-file\nBUNDLEKIT_DOTENV_B=from-file\n"), 0o644))

	t.Setenv("BUNDLEKIT_DOTENV_A", "")
	os.Unsetenv("BUNDLEKIT_DOTENV_A")
	t.Setenv("BUNDLEKIT_DOTENV_B", "preset")

	require.NoError(t, LoadDotEnv(root))
	t.Cleanup(func() { os.Unsetenv("BUNDLEKIT_DOTENV_A") })

	assert.Equal(t, "from-file", os.Getenv("BUNDLEKIT_DOTENV_A"))
	assert.Equal(t, "preset", os.Getenv("BUNDLEKIT_DOTENV_B"))
}
