package build

import (
	"context"
	"sync"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/bundler"
)

type fakeResult struct {
	stats *bundler.Stats
	err   error
}

// fakeCompiler returns canned results. Watch replays every result then
// blocks until ctx is done.
type fakeCompiler struct {
	config  *bundleconfig.Config
	results []fakeResult

	mutex sync.Mutex
	runs  int
}

func (f *fakeCompiler) Run(ctx context.Context) (*bundler.Stats, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.runs++
	if len(f.results) == 0 {
		return &bundler.Stats{}, nil
	}
	r := f.results[0]
	return r.stats, r.err
}

func (f *fakeCompiler) Watch(ctx context.Context, opts bundler.WatchOptions, onDone func(*bundler.Stats, error)) error {
	for _, r := range f.results {
		f.mutex.Lock()
		f.runs++
		f.mutex.Unlock()
		onDone(r.stats, r.err)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeCompiler) Runs() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.runs
}

// fakeConstructor records every compiler it builds.
type fakeConstructor struct {
	results []fakeResult
	err     error
	built   []*fakeCompiler
}

func (fc *fakeConstructor) New(cfg *bundleconfig.Config) (bundler.Compiler, error) {
	if fc.err != nil {
		return nil, fc.err
	}
	c := &fakeCompiler{config: cfg, results: fc.results}
	fc.built = append(fc.built, c)
	return c, nil
}
