package bundleconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoadOverrides reads an override configuration from path.
//
// A missing file is not an error: it returns (nil, false, nil). An empty
// file yields an empty override. Decode errors, including unknown keys, are
// returned wrapped so the caller sees the original yaml error.
func LoadOverrides(fsys afero.Fs, path string) (*Config, bool, error) {
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, true, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, true, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, true, nil
}

// Parse decodes a YAML build configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return cfg, nil
}
