package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/errors"
	"github.com/conneroisu/bundlekit/internal/logging"
	"github.com/conneroisu/bundlekit/internal/validation"
	"github.com/conneroisu/bundlekit/internal/watcher"
)

// ConfigFileName is the file the resolved configuration is written to
// inside the cache directory.
const ConfigFileName = "bundle.config.json"

// ExecOptions describe how to invoke the bundler executable.
type ExecOptions struct {
	Command string
	Args    []string
	// CacheDir receives the generated configuration file. It must be
	// absolute.
	CacheDir string
	// Dir is the working directory, normally the project root.
	Dir string
	// Allowed restricts the executable's base name. Nil allows any.
	Allowed map[string]bool
	Logger  logging.Logger
}

// ExecCompiler runs a bundler executable that reads its configuration from
// a file and prints stats as JSON on stdout.
type ExecCompiler struct {
	opts   ExecOptions
	config *bundleconfig.Config
	logger logging.Logger
}

// NewExecConstructor returns a Constructor producing ExecCompilers.
func NewExecConstructor(opts ExecOptions) Constructor {
	return func(cfg *bundleconfig.Config) (Compiler, error) {
		return NewExecCompiler(opts, cfg)
	}
}

// NewExecCompiler validates the command line and binds it to cfg.
func NewExecCompiler(opts ExecOptions, cfg *bundleconfig.Config) (*ExecCompiler, error) {
	if cfg == nil {
		return nil, errors.NewValidationError(errors.ErrCodeCompilerCreate, "bundle configuration is nil")
	}
	if err := validation.ValidateCommand(opts.Command, opts.Allowed); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeCommandInjection, err.Error())
	}
	for _, arg := range opts.Args {
		if err := validation.ValidateArgument(arg); err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeCommandInjection,
				fmt.Sprintf("invalid bundler argument '%s': %v", arg, err))
		}
	}
	if !filepath.IsAbs(opts.CacheDir) {
		return nil, errors.NewValidationError(errors.ErrCodeCompilerCreate,
			fmt.Sprintf("cache directory must be absolute: %s", opts.CacheDir))
	}
	if len(cfg.Entry) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeCompilerCreate, "configuration has no entry points")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &ExecCompiler{
		opts:   opts,
		config: cfg.Clone(),
		logger: logger.WithComponent("bundler"),
	}, nil
}

// ConfigPath returns where the configuration file is written.
func (c *ExecCompiler) ConfigPath() string {
	return filepath.Join(c.opts.CacheDir, ConfigFileName)
}

// Run writes the configuration and runs the bundler once.
func (c *ExecCompiler) Run(ctx context.Context) (*Stats, error) {
	if err := c.writeConfig(); err != nil {
		return nil, err
	}

	args := append(append([]string{}, c.opts.Args...), "--config", c.ConfigPath(), "--json")
	cmd := exec.CommandContext(ctx, c.opts.Command, args...)
	cmd.Dir = c.opts.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug(ctx, "running bundler", "command", c.opts.Command, "args", args)
	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Bundlers exit non-zero when the compilation has errors but still
	// print stats; only a missing or unreadable report is a run failure.
	stats, parseErr := ParseStats(stdout.Bytes())
	if parseErr != nil {
		if runErr != nil {
			return nil, errors.NewBuildError(errors.ErrCodeBundlerFailed,
				fmt.Sprintf("bundler failed: %s", strings.TrimSpace(stderr.String())), runErr)
		}
		return nil, errors.NewBuildError(errors.ErrCodeBundlerFailed, "bundler printed no stats", parseErr)
	}

	if stderr.Len() > 0 {
		c.logger.Debug(ctx, "bundler stderr", "output", strings.TrimSpace(stderr.String()))
	}
	return stats, nil
}

// Watch runs once, then reruns after every debounced batch of source
// changes until ctx is done.
func (c *ExecCompiler) Watch(ctx context.Context, opts WatchOptions, onDone func(*Stats, error)) error {
	fw, err := watcher.NewFileWatcher(opts.Debounce, c.logger)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeBundlerFailed, "creating file watcher", err)
	}
	defer fw.Stop()

	fw.AddFilter(watcher.NoHiddenFilter)
	if len(opts.Ignore) > 0 {
		fw.AddFilter(watcher.IgnoreFilter(opts.Ignore...))
	}
	if c.config.Output.Path != "" {
		fw.AddFilter(watcher.ExcludeDirFilter(c.config.Output.Path))
	}
	fw.AddFilter(watcher.ExcludeDirFilter(c.opts.CacheDir))

	paths := opts.Paths
	if len(paths) == 0 {
		paths = c.entryDirs()
	}
	for _, path := range paths {
		if err := fw.AddRecursive(path); err != nil {
			return errors.NewIOError(errors.ErrCodeBundlerFailed, "watching "+path, err)
		}
	}

	trigger := make(chan struct{}, 1)
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		c.logger.Debug(ctx, "sources changed", "files", len(events), "first", events[0].Path)
		select {
		case trigger <- struct{}{}:
		default:
		}
		return nil
	})
	if err := fw.Start(ctx); err != nil {
		return err
	}

	onDone(c.Run(ctx))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			stats, err := c.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			onDone(stats, err)
		}
	}
}

func (c *ExecCompiler) writeConfig() error {
	data, err := json.MarshalIndent(c.config, "", "  ")
	if err != nil {
		return errors.NewBuildError(errors.ErrCodeBundlerFailed, "encoding bundle configuration", err)
	}
	if err := os.MkdirAll(c.opts.CacheDir, 0o755); err != nil {
		return errors.NewIOError(errors.ErrCodeBundlerFailed, "creating cache directory", err)
	}
	if err := os.WriteFile(c.ConfigPath(), data, 0o644); err != nil {
		return errors.NewIOError(errors.ErrCodeBundlerFailed, "writing bundle configuration", err)
	}
	return nil
}

// entryDirs returns the directories holding the configured entries. Query
// suffixes such as a live-reload client's server URL are dropped.
func (c *ExecCompiler) entryDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, entry := range c.config.Entry {
		for _, path := range entry {
			if i := strings.IndexByte(path, '?'); i >= 0 {
				path = path[:i]
			}
			if !filepath.IsAbs(path) {
				path = filepath.Join(c.opts.Dir, path)
			}
			dir := filepath.Dir(path)
			if seen[dir] {
				continue
			}
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// ParseStats decodes a JSON stats report, skipping any text the bundler
// printed before it.
func ParseStats(out []byte) (*Stats, error) {
	start := bytes.IndexByte(out, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in bundler output")
	}
	var stats Stats
	dec := json.NewDecoder(bytes.NewReader(out[start:]))
	if err := dec.Decode(&stats); err != nil {
		return nil, fmt.Errorf("decoding bundler stats: %w", err)
	}
	return &stats, nil
}
