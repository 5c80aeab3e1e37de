package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/bundler"
	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/logging"
)

const testRoot = "/work/shop"

type controllerFixture struct {
	fs          afero.Fs
	constructor *fakeConstructor
	logs        *bytes.Buffer
	controller  *Controller
}

func newControllerFixture(t *testing.T, results ...fakeResult) *controllerFixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	logs := &bytes.Buffer{}
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelDebug, Output: logs})
	fc := &fakeConstructor{results: results}

	base := bundleconfig.Base(bundleconfig.BaseOptions{Env: config.EnvDev, Root: testRoot, Name: "shop"})
	resolver := &bundleconfig.Resolver{
		Base:          base,
		Root:          testRoot,
		OverridesFile: config.DefaultOverridesFile,
		FS:            fs,
		Logger:        logger,
	}

	return &controllerFixture{
		fs:          fs,
		constructor: fc,
		logs:        logs,
		controller: &Controller{
			Resolver: resolver,
			Factory:  &Factory{New: fc.New, FS: fs, Root: testRoot},
			Cleaner:  &Cleaner{FS: fs},
			Logger:   logger,
			Metrics:  NewMetrics(nil),
			Command:  config.Command{Env: config.EnvDev},
		},
	}
}

func waitOutcome(t *testing.T, task *Task) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o, err := task.Wait(ctx)
	require.NoError(t, err)
	return o
}

func TestCompileSuccess(t *testing.T) {
	f := newControllerFixture(t, fakeResult{stats: &bundler.Stats{
		Hash:   "1a2b",
		Time:   40,
		Assets: []bundler.Asset{{Name: "app.bundle.js", Size: 100, Emitted: true}},
	}})

	task, err := f.controller.Compile(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)

	o := waitOutcome(t, task)
	assert.Equal(t, StateDone, o.State)
	assert.Equal(t, task.ID, o.TaskID)
	assert.Equal(t, 1, o.Sequence)
	assert.False(t, o.Classification.Fatal)
	assert.Equal(t, StateDone, task.State())

	assert.NotContains(t, f.logs.String(), "level=ERROR")
	assert.Contains(t, f.logs.String(), "app.bundle.js")

	_, err = task.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNoMoreOutcomes)

	snap := f.controller.Metrics.Snapshot()
	assert.Equal(t, int64(1), snap.TotalCompiles)
	assert.Equal(t, int64(1), snap.Done)
}

func TestCompileFatalFailure(t *testing.T) {
	f := newControllerFixture(t, fakeResult{stats: statsWithErrors("Unexpected token")})

	task, err := f.controller.Compile(context.Background())
	require.NoError(t, err)

	o := waitOutcome(t, task)
	assert.Equal(t, StateFailed, o.State)
	assert.True(t, o.Classification.Fatal)
	assert.Equal(t, StateFailed, task.State())
	assert.Contains(t, f.logs.String(), "level=ERROR")
	assert.Contains(t, f.logs.String(), "Unexpected token")
}

func TestCompileFatalFailureSuppressed(t *testing.T) {
	f := newControllerFixture(t, fakeResult{stats: statsWithErrors("Unexpected token")})
	f.controller.Suppressed = true

	task, err := f.controller.Compile(context.Background())
	require.NoError(t, err)

	o := waitOutcome(t, task)
	assert.Equal(t, StateFailed, o.State)
	assert.True(t, o.Classification.Fatal)
	assert.NotContains(t, f.logs.String(), "level=ERROR")
	assert.NotContains(t, f.logs.String(), "Unexpected token")
}

func TestCompileAdvisoryOnly(t *testing.T) {
	f := newControllerFixture(t, fakeResult{stats: statsWithErrors("6:2 error Missing semicolon")})

	task, err := f.controller.Compile(context.Background())
	require.NoError(t, err)

	o := waitOutcome(t, task)
	assert.Equal(t, StateDone, o.State)
	assert.Len(t, o.Classification.Diagnostics, 1)
	assert.Contains(t, f.logs.String(), "level=WARN")
	assert.NotContains(t, f.logs.String(), "level=ERROR")
}

func TestCompileTopLevelErrorFails(t *testing.T) {
	f := newControllerFixture(t, fakeResult{err: errors.New("spawn webpack ENOENT")})

	task, err := f.controller.Compile(context.Background())
	require.NoError(t, err)

	o := waitOutcome(t, task)
	assert.Equal(t, StateFailed, o.State)
	assert.False(t, o.Classification.Fatal)
	assert.EqualError(t, o.Err, "spawn webpack ENOENT")
}

func TestCompileCleansOutputFirst(t *testing.T) {
	f := newControllerFixture(t)
	out := filepath.Join(testRoot, "dist", "shop")
	require.NoError(t, afero.WriteFile(f.fs, filepath.Join(out, "app.bundle-old.js"), []byte("x"), 0o644))

	task, err := f.controller.Compile(context.Background())
	require.NoError(t, err)
	waitOutcome(t, task)

	exists, err := afero.Exists(f.fs, filepath.Join(out, "app.bundle-old.js"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCompileCleanFailureAborts(t *testing.T) {
	f := newControllerFixture(t)
	out := filepath.Join(testRoot, "dist", "shop")
	require.NoError(t, f.fs.MkdirAll(filepath.Join(out, "fonts"), 0o755))

	task, err := f.controller.Compile(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, syscall.EISDIR))
	var pathErr *os.PathError
	assert.ErrorAs(t, err, &pathErr)

	assert.Equal(t, StateFailed, task.State())
	require.Len(t, f.constructor.built, 1)
	assert.Zero(t, f.constructor.built[0].Runs())
}

func TestCompileResolveErrorPropagates(t *testing.T) {
	f := newControllerFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, filepath.Join(testRoot, config.DefaultOverridesFile),
		[]byte("entry: [broken\n"), 0o644))

	task, err := f.controller.Compile(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.DefaultOverridesFile)
	assert.Equal(t, StateFailed, task.State())
	assert.Empty(t, f.constructor.built)
}

func TestCompileCreateErrorPropagates(t *testing.T) {
	f := newControllerFixture(t)
	createErr := errors.New("configuration has an unknown property 'entri'")
	f.constructor.err = createErr

	_, err := f.controller.Compile(context.Background())
	assert.Same(t, createErr, err)
}

func TestCompileTransform(t *testing.T) {
	f := newControllerFixture(t)
	f.controller.Transform = func(cfg *bundleconfig.Config) (*bundleconfig.Config, error) {
		cfg.Devtool = "cheap-eval-source-map"
		return cfg, nil
	}

	task, err := f.controller.Compile(context.Background())
	require.NoError(t, err)
	waitOutcome(t, task)

	assert.Equal(t, "cheap-eval-source-map", task.Handle().Config.Devtool)
}

func TestWatchDeliversEveryRecompilation(t *testing.T) {
	f := newControllerFixture(t,
		fakeResult{stats: &bundler.Stats{Hash: "first"}},
		fakeResult{stats: statsWithErrors("SyntaxError: Unexpected token")},
		fakeResult{stats: &bundler.Stats{Hash: "third"}},
	)
	f.controller.Command.Watch = true

	ctx, cancel := context.WithCancel(context.Background())
	task, err := f.controller.Compile(ctx)
	require.NoError(t, err)
	assert.True(t, task.Watch)

	first := waitOutcome(t, task)
	second := waitOutcome(t, task)
	third := waitOutcome(t, task)

	assert.Equal(t, []int{1, 2, 3}, []int{first.Sequence, second.Sequence, third.Sequence})
	assert.Equal(t, StateDone, first.State)
	assert.Equal(t, StateFailed, second.State)
	assert.Equal(t, StateDone, third.State)
	assert.Equal(t, StateCompiling, task.State())

	cancel()
	_, err = task.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNoMoreOutcomes)
	assert.Equal(t, StateCompiling, task.State())
}

func TestWatchForcesWatchMode(t *testing.T) {
	f := newControllerFixture(t, fakeResult{stats: &bundler.Stats{}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	task, err := f.controller.Watch(ctx)
	require.NoError(t, err)
	assert.True(t, task.Watch)

	waitOutcome(t, task)
	assert.Equal(t, StateCompiling, task.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.True(t, StateDone.Terminal())
	assert.False(t, StateCompiling.Terminal())
	assert.Equal(t, "unknown", State(99).String())
}
