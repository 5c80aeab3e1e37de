package build

import (
	"github.com/spf13/afero"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/bundler"
)

// Handle is a compiler together with the helpers bound to the
// configuration it was built from.
type Handle struct {
	Compiler bundler.Compiler
	Utils    *Utils
	Config   *bundleconfig.Config
}

// Factory creates compiler handles.
type Factory struct {
	New  bundler.Constructor
	FS   afero.Fs
	Root string
}

// Create snapshots cfg, binds helpers to the snapshot and constructs the
// compiler. Constructor errors are returned as is. Handles share no state.
func (f *Factory) Create(cfg *bundleconfig.Config) (*Handle, error) {
	snapshot := cfg.Clone()
	if snapshot == nil {
		snapshot = &bundleconfig.Config{}
	}

	utils := NewUtils(snapshot, f.Root, f.FS)

	compiler, err := f.New(snapshot)
	if err != nil {
		return nil, err
	}

	return &Handle{
		Compiler: compiler,
		Utils:    utils,
		Config:   snapshot,
	}, nil
}
