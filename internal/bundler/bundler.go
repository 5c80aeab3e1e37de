// Package bundler defines the boundary between bundlekit and the external
// module bundler: the Compiler interface, the statistics a compile run
// reports, and an adapter that drives a bundler executable.
package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
)

// Compiler runs the bundler against the configuration it was built from.
type Compiler interface {
	// Run performs a single compilation and blocks until it finishes. A
	// non-nil error means the bundler could not run at all; compile
	// diagnostics are reported in Stats.
	Run(ctx context.Context) (*Stats, error)

	// Watch compiles once, then again on every relevant change, calling
	// onDone after each compilation. It blocks until ctx is done.
	Watch(ctx context.Context, opts WatchOptions, onDone func(*Stats, error)) error
}

// Constructor builds a Compiler for one configuration snapshot. Validation
// of the configuration belongs to the constructor.
type Constructor func(cfg *bundleconfig.Config) (Compiler, error)

// WatchOptions tune continuous compilation.
type WatchOptions struct {
	// Debounce groups bursts of file changes into one recompilation.
	Debounce time.Duration
	// Paths are the roots to watch. Empty means the directories holding
	// the configured entries.
	Paths []string
	// Ignore lists path segments whose changes never trigger a rebuild.
	Ignore []string
}

// Stats is what the bundler reports for one compilation.
type Stats struct {
	Hash     string       `json:"hash,omitempty"`
	Time     int64        `json:"time,omitempty"` // milliseconds
	Errors   []Diagnostic `json:"errors,omitempty"`
	Warnings []Diagnostic `json:"warnings,omitempty"`
	Assets   []Asset      `json:"assets,omitempty"`
	Chunks   []Chunk      `json:"chunks,omitempty"`
}

// HasErrors reports whether the compilation produced error diagnostics.
func (s *Stats) HasErrors() bool {
	return s != nil && len(s.Errors) > 0
}

// Duration returns the compile time.
func (s *Stats) Duration() time.Duration {
	if s == nil {
		return 0
	}
	return time.Duration(s.Time) * time.Millisecond
}

// Diagnostic is one error or warning from the bundler.
type Diagnostic struct {
	Message    string `json:"message"`
	ModuleName string `json:"moduleName,omitempty"`
	Loc        string `json:"loc,omitempty"`
}

// UnmarshalJSON accepts both a bare message string and an object.
func (d *Diagnostic) UnmarshalJSON(data []byte) error {
	var msg string
	if err := json.Unmarshal(data, &msg); err == nil {
		*d = Diagnostic{Message: msg}
		return nil
	}

	type plain Diagnostic
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("diagnostic must be a string or an object: %w", err)
	}
	*d = Diagnostic(p)
	return nil
}

func (d Diagnostic) String() string {
	switch {
	case d.ModuleName != "" && d.Loc != "":
		return fmt.Sprintf("%s %s\n%s", d.ModuleName, d.Loc, d.Message)
	case d.ModuleName != "":
		return fmt.Sprintf("%s\n%s", d.ModuleName, d.Message)
	default:
		return d.Message
	}
}

type Asset struct {
	Name    string   `json:"name"`
	Size    int64    `json:"size"`
	Chunks  []any    `json:"chunks,omitempty"`
	Emitted bool     `json:"emitted,omitempty"`
	Names   []string `json:"chunkNames,omitempty"`
}

type Chunk struct {
	ID      any      `json:"id"`
	Names   []string `json:"names,omitempty"`
	Size    int64    `json:"size"`
	Files   []string `json:"files,omitempty"`
	Initial bool     `json:"initial,omitempty"`
}
