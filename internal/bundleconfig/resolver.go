package bundleconfig

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/conneroisu/bundlekit/internal/logging"
)

// Resolver produces the final build configuration for one invocation.
type Resolver struct {
	// Base is the default configuration. It is never modified.
	Base *Config
	// Root is the project root that OverridesFile is relative to.
	Root string
	// OverridesFile is the project-relative override file searched when no
	// override is passed to Resolve.
	OverridesFile string
	FS            afero.Fs
	Logger        logging.Logger
}

// NewResolver creates a resolver reading override files from the OS
// filesystem.
func NewResolver(base *Config, root, overridesFile string, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{
		Base:          base,
		Root:          root,
		OverridesFile: overridesFile,
		FS:            afero.NewOsFs(),
		Logger:        logger.WithComponent("resolver"),
	}
}

// OverridesPath returns the absolute path searched for the override file.
func (r *Resolver) OverridesPath() string {
	if filepath.IsAbs(r.OverridesFile) {
		return r.OverridesFile
	}
	return filepath.Join(r.Root, r.OverridesFile)
}

// Overrides returns override when it is non-nil, otherwise the contents of
// the override file, otherwise an empty configuration.
func (r *Resolver) Overrides(override *Config) (*Config, error) {
	if override != nil {
		return override, nil
	}
	if r.OverridesFile == "" {
		return &Config{}, nil
	}

	path := r.OverridesPath()
	cfg, found, err := LoadOverrides(r.fs(), path)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Config{}, nil
	}

	r.log().Info(context.Background(), "using overrides file", "path", path)
	return cfg, nil
}

// Resolve merges the base with override (or the override file) and pins
// the output path to the base's.
func (r *Resolver) Resolve(override *Config) (*Config, error) {
	src, err := r.Overrides(override)
	if err != nil {
		return nil, err
	}

	cfg, err := Merge(r.Base, src)
	if err != nil {
		return nil, err
	}

	if r.Base != nil {
		cfg.Output.Path = r.Base.Output.Path
	}

	r.log().Debug(context.Background(), "resolved build configuration",
		"entries", len(cfg.Entry),
		"output", cfg.Output.Path,
		"rules", len(cfg.Module.Rules),
		"plugins", len(cfg.Plugins),
		"devtool", cfg.Devtool,
	)

	return cfg, nil
}

func (r *Resolver) fs() afero.Fs {
	if r.FS == nil {
		return afero.NewOsFs()
	}
	return r.FS
}

func (r *Resolver) log() logging.Logger {
	if r.Logger == nil {
		return logging.Discard()
	}
	return r.Logger
}
