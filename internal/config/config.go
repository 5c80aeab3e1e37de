// Package config provides bundlekit's own settings, loaded with Viper from
// flags, environment variables, an optional .bundlekit.yml and a project
// .env file.
//
// These settings describe how bundlekit runs (environment, log level, the
// bundler executable, dev-server address, test runner). The bundle
// configuration handed to the bundler lives in package bundleconfig.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// DefaultOverridesFile is the project-relative override configuration file.
const DefaultOverridesFile = "bundle.overrides.yml"

// EnvPrefix prefixes every settings environment variable, e.g.
// BUNDLEKIT_BUNDLER_COMMAND for bundler.command.
const EnvPrefix = "BUNDLEKIT"

// defaults registers every settings key with viper. Keys viper does not
// know are invisible to Unmarshal even when their environment variable is
// set. Empty values are filled in by applyDefaults.
var defaults = map[string]any{
	"env":                       "",
	"log-level":                 "info",
	"project.root":              "",
	"project.name":              "",
	"overrides.file":            DefaultOverridesFile,
	"bundler.command":           "webpack",
	"bundler.args":              []string{},
	"bundler.cache_dir":         ".bundlekit/cache",
	"bundler.tool_modules":      "",
	"devserver.host":            "localhost",
	"devserver.port":            8080,
	"devserver.allowed_origins": []string{},
	"test.runner":               "mocha",
	"test.args":                 []string{"--colors", "test"},
	"test.watch_args":           []string{"--colors", "--watch"},
	"test.cover_runner":         "node_modules/istanbul/lib/cli.js",
	"test.cover_args":           []string{"cover", "node_modules/mocha/bin/_mocha", "--", "--colors", "test"},
	"watch.debounce":            300 * time.Millisecond,
	"watch.ignore":              []string{"node_modules", ".git"},
}

// SetDefaults registers the default value of every settings key.
func SetDefaults() {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// BindEnv makes every settings key readable from BUNDLEKIT_<SECTION>_<OPTION>
// environment variables. List values are comma-separated.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

type Settings struct {
	Env       string            `mapstructure:"env"`
	LogLevel  string            `mapstructure:"log-level"`
	Project   ProjectSettings   `mapstructure:"project"`
	Overrides OverridesSettings `mapstructure:"overrides"`
	Bundler   BundlerSettings   `mapstructure:"bundler"`
	DevServer DevServerSettings `mapstructure:"devserver"`
	Test      TestSettings      `mapstructure:"test"`
	Watch     WatchSettings     `mapstructure:"watch"`
}

type ProjectSettings struct {
	Root string `mapstructure:"root"`
	Name string `mapstructure:"name"`
}

type OverridesSettings struct {
	File string `mapstructure:"file"`
}

type BundlerSettings struct {
	Command  string   `mapstructure:"command"`
	Args     []string `mapstructure:"args"`
	CacheDir string   `mapstructure:"cache_dir"`
	// ToolModules is a node_modules directory searched for loaders before
	// the project's own. Relative paths are relative to the project root.
	ToolModules string `mapstructure:"tool_modules"`
}

type DevServerSettings struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns host:port.
func (d DevServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// URL returns the dev server's http URL.
func (d DevServerSettings) URL() string {
	return "http://" + d.Addr()
}

type TestSettings struct {
	Runner      string   `mapstructure:"runner"`
	Args        []string `mapstructure:"args"`
	WatchArgs   []string `mapstructure:"watch_args"`
	CoverRunner string   `mapstructure:"cover_runner"`
	CoverArgs   []string `mapstructure:"cover_args"`
}

type WatchSettings struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Ignore   []string      `mapstructure:"ignore"`
}

// Load registers defaults, unmarshals the global viper state into
// Settings, derives the remaining defaults and validates the result.
func Load() (*Settings, error) {
	SetDefaults()

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, err
	}

	if err := applyDefaults(&settings); err != nil {
		return nil, err
	}

	if err := validateSettings(&settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &settings, nil
}

func applyDefaults(s *Settings) error {
	if s.Project.Root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving project root: %w", err)
		}
		s.Project.Root = cwd
	}
	root, err := filepath.Abs(s.Project.Root)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	s.Project.Root = root

	if s.Project.Name == "" {
		s.Project.Name = PackageName(root)
	}

	s.Env = NormalizeEnv(s.Env)

	if s.Bundler.ToolModules != "" && !filepath.IsAbs(s.Bundler.ToolModules) {
		s.Bundler.ToolModules = filepath.Join(root, s.Bundler.ToolModules)
	}

	if len(s.DevServer.AllowedOrigins) == 0 {
		s.DevServer.AllowedOrigins = []string{
			s.DevServer.URL(),
			fmt.Sprintf("http://127.0.0.1:%d", s.DevServer.Port),
		}
	}

	if s.Watch.Debounce <= 0 {
		s.Watch.Debounce = defaults["watch.debounce"].(time.Duration)
	}

	return nil
}

// NormalizeEnv resolves the build environment. An explicit value wins,
// then NODE_ENV; anything unset means prod. The long spellings
// "development" and "production" are folded to dev and prod.
func NormalizeEnv(env string) string {
	if env == "" {
		env = os.Getenv("NODE_ENV")
	}
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "":
		return EnvProd
	case "development":
		return EnvDev
	case "production":
		return EnvProd
	default:
		return strings.ToLower(strings.TrimSpace(env))
	}
}
