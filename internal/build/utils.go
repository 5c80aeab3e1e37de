package build

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/bundler"
	"github.com/conneroisu/bundlekit/internal/logging"
)

// Utils are helpers bound to one configuration snapshot.
type Utils struct {
	config *bundleconfig.Config
	root   string
	fs     afero.Fs
}

// NewUtils binds helpers to cfg. cfg must not be modified afterwards.
func NewUtils(cfg *bundleconfig.Config, root string, fs afero.Fs) *Utils {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Utils{config: cfg, root: root, fs: fs}
}

// OutputPath returns the directory the bundle is emitted to.
func (u *Utils) OutputPath() string {
	return u.config.Output.Path
}

// AssetPath returns the on-disk path of an emitted asset.
func (u *Utils) AssetPath(name string) string {
	return filepath.Join(u.config.Output.Path, filepath.FromSlash(name))
}

// OutputFS serves the output directory over HTTP.
func (u *Utils) OutputFS() http.FileSystem {
	return afero.NewHttpFs(afero.NewBasePathFs(u.fs, u.config.Output.Path))
}

// Errors extracts the diagnostics to report for one compilation: a
// top-level failure first, then the bundler's error list.
func (u *Utils) Errors(err error, stats *bundler.Stats) []bundler.Diagnostic {
	var out []bundler.Diagnostic
	if err != nil {
		out = append(out, bundler.Diagnostic{Message: err.Error()})
	}
	if stats != nil {
		out = append(out, stats.Errors...)
	}
	return out
}

// Classify extracts and classifies the diagnostics of one compilation.
func (u *Utils) Classify(err error, stats *bundler.Stats) Classification {
	return Classification{
		Fatal:       IsFatalOnly(stats),
		Diagnostics: u.Errors(err, stats),
	}
}

// Format renders a diagnostic with module paths relative to the project
// root.
func (u *Utils) Format(d bundler.Diagnostic) string {
	if d.ModuleName != "" {
		d.ModuleName = u.relative(d.ModuleName)
	}
	if u.root != "" {
		d.Message = strings.ReplaceAll(d.Message, u.root+string(filepath.Separator), "./")
	}
	return d.String()
}

// LogErrors logs diagnostics at error level when fatal, otherwise at warn
// level.
func (u *Utils) LogErrors(ctx context.Context, logger logging.Logger, diags []bundler.Diagnostic, fatal bool) {
	for _, d := range diags {
		if fatal {
			logger.Error(ctx, nil, u.Format(d))
		} else {
			logger.Warn(ctx, nil, u.Format(d))
		}
	}
}

func (u *Utils) relative(path string) string {
	if u.root == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(u.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return "./" + filepath.ToSlash(rel)
}
