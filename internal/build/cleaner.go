package build

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
)

// Cleaner empties a bundle output directory.
type Cleaner struct {
	FS afero.Fs
}

// Clean deletes every file directly inside dir. A missing dir is not an
// error. Subdirectories are not supported: the first one found aborts the
// clean with an EISDIR *os.PathError, leaving already deleted files gone.
func (c *Cleaner) Clean(dir string) error {
	fs := c.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			return &os.PathError{Op: "unlink", Path: path, Err: syscall.EISDIR}
		}
		if err := fs.Remove(path); err != nil {
			return err
		}
	}

	return nil
}

// CleanOutput cleans cfg's output path.
func (c *Cleaner) CleanOutput(cfg *bundleconfig.Config) error {
	return c.Clean(cfg.Output.Path)
}
