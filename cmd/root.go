// Package cmd provides the bundlekit command-line interface.
//
// Configuration sources, highest priority first:
//  1. command-line flags (--config, --log-level, --env, ...)
//  2. BUNDLEKIT_CONFIG_FILE: path to a custom config file
//  3. environment variables following BUNDLEKIT_<SECTION>_<OPTION>
//     (BUNDLEKIT_DEVSERVER_PORT, BUNDLEKIT_BUNDLER_COMMAND, ...)
//  4. .bundlekit.yml in the current directory
//
// A project .env file is loaded before any of these are read and never
// overrides variables that are already set.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/bundlekit/internal/build"
	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/bundler"
	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/logging"
)

var cfgFile string

// Loaded once per invocation by the root command's PersistentPreRunE.
var (
	settings *config.Settings
	logger   logging.Logger = logging.Discard()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bundlekit",
	Short: "Build orchestration in front of a JavaScript module bundler",
	Long: `bundlekit resolves a bundle configuration from built-in defaults and
project overrides, drives the bundler in one-shot or watch mode, serves
development builds with live reload and runs the project's tests.

Quick Start:
  bundlekit init          Scaffold src/entry.js, index.html and .eslintrc.json
  bundlekit serve         Start the live-reload dev server
  bundlekit build         Compile once
  bundlekit watch         Compile on every change
  bundlekit test          Run the test runner

Overrides:
  Put a partial configuration in bundle.overrides.yml at the project root.
  Its keys are merged over the defaults; "entry" replaces the default entry.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// Execute runs the root command with a context cancelled on SIGINT or
// SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.SetGlobalNormalizationFunc(wordSepNormalizeFunc)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .bundlekit.yml, can also use BUNDLEKIT_CONFIG_FILE env var)")
	flags.StringP("log-level", "l", "info", "log level (silent, error, warn, info, verbose)")
	flags.StringP("env", "e", "", "build environment: dev or prod (default from NODE_ENV, else prod)")
	flags.String("root", "", "project root (default is the current directory)")

	_ = viper.BindPFlag("log-level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("env", flags.Lookup("env"))
	_ = viper.BindPFlag("project.root", flags.Lookup("root"))
}

// wordSepNormalizeFunc accepts underscores in flag names, so --log_level
// and --log-level are the same flag.
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// initConfig picks the config file and enables BUNDLEKIT_ environment
// variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("BUNDLEKIT_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bundlekit")
	}

	config.BindEnv()

	// A missing or unreadable file leaves the defaults in place.
	_ = viper.ReadInConfig()
}

// loadSettings loads .env, then settings, then builds the logger. The log
// level is fixed from here on.
func loadSettings(cmd *cobra.Command, args []string) error {
	root := viper.GetString("project.root")
	if root == "" {
		root = "."
	}
	if err := config.LoadDotEnv(root); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	s, err := config.Load()
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}

	settings = s
	logger = logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: "text",
		Output: cmd.ErrOrStderr(),
	})

	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug(cmd.Context(), "using config file", "path", used)
	}
	return nil
}

// cacheDir returns the absolute bundler cache directory.
func cacheDir(s *config.Settings) string {
	if filepath.IsAbs(s.Bundler.CacheDir) {
		return s.Bundler.CacheDir
	}
	return filepath.Join(s.Project.Root, s.Bundler.CacheDir)
}

// newController wires the compile lifecycle for one invocation.
func newController(s *config.Settings, command config.Command, metrics *build.Metrics) *build.Controller {
	suppressed := logging.Suppressed()
	root := s.Project.Root

	base := bundleconfig.Base(bundleconfig.BaseOptions{
		Env:         command.Env,
		Root:        root,
		Name:        s.Project.Name,
		ToolModules: s.Bundler.ToolModules,
		Test:        suppressed,
	})

	fs := afero.NewOsFs()
	constructor := bundler.NewExecConstructor(bundler.ExecOptions{
		Command:  s.Bundler.Command,
		Args:     s.Bundler.Args,
		CacheDir: cacheDir(s),
		Dir:      root,
		Logger:   logger,
	})

	return &build.Controller{
		Resolver:   bundleconfig.NewResolver(base, root, s.Overrides.File, logger),
		Factory:    &build.Factory{New: constructor, FS: fs, Root: root},
		Cleaner:    &build.Cleaner{FS: fs},
		Logger:     logger.WithComponent("build"),
		Metrics:    metrics,
		Command:    command,
		Suppressed: suppressed,
		WatchOptions: bundler.WatchOptions{
			Debounce: s.Watch.Debounce,
			Ignore:   s.Watch.Ignore,
		},
	}
}
