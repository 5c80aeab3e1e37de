package config

import (
	"fmt"

	"github.com/conneroisu/bundlekit/internal/errors"
	"github.com/conneroisu/bundlekit/internal/logging"
	"github.com/conneroisu/bundlekit/internal/validation"
)

// validateSettings validates settings values for security and correctness
func validateSettings(s *Settings) error {
	if s.Env != EnvDev && s.Env != EnvProd {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("env must be %q or %q", EnvDev, EnvProd), nil).
			WithContext("value", s.Env)
	}

	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "log-level", err)
	}

	if err := validation.ValidateRelativePath(s.Overrides.File); err != nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "overrides.file", err)
	}

	if err := validateBundlerSettings(&s.Bundler); err != nil {
		return fmt.Errorf("bundler config: %w", err)
	}

	if err := validateDevServerSettings(&s.DevServer); err != nil {
		return fmt.Errorf("devserver config: %w", err)
	}

	return nil
}

func validateBundlerSettings(b *BundlerSettings) error {
	if err := validation.ValidateCommand(b.Command, nil); err != nil {
		return errors.NewConfigError(errors.ErrCodeCommandInjection, "bundler.command", err)
	}
	for _, arg := range b.Args {
		if err := validation.ValidateArgument(arg); err != nil {
			return errors.NewConfigError(errors.ErrCodeCommandInjection, "bundler.args", err).
				WithContext("arg", arg)
		}
	}
	if err := validation.ValidateRelativePath(b.CacheDir); err != nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "bundler.cache_dir", err)
	}

	return nil
}

func validateDevServerSettings(d *DevServerSettings) error {
	// 0 is allowed so tests can ask for a system-assigned port
	if d.Port < 0 || d.Port > 65535 {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("port %d is not in valid range 0-65535", d.Port), nil)
	}

	if err := validation.ValidateHost(d.Host); err != nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "devserver.host", err)
	}

	return nil
}
