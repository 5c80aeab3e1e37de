// Package build runs the compile lifecycle: it creates compilers from a
// resolved configuration, cleans stale output, runs the bundler once or
// continuously and classifies what it reports.
package build

import (
	"context"
	"time"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/bundler"
	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/logging"
)

// Controller drives compile and watch invocations.
type Controller struct {
	Resolver *bundleconfig.Resolver
	Factory  *Factory
	Cleaner  *Cleaner
	Logger   logging.Logger
	Metrics  *Metrics
	Command  config.Command
	// Suppressed skips diagnostic and stats logging. Outcomes are still
	// classified.
	Suppressed   bool
	WatchOptions bundler.WatchOptions

	// Override replaces the overrides file when set.
	Override *bundleconfig.Config
	// Transform rewrites the resolved configuration before the compiler
	// is created.
	Transform func(*bundleconfig.Config) (*bundleconfig.Config, error)
}

// Compile resolves the configuration, creates the compiler, cleans the
// output directory and starts compiling, continuously when the command
// asks for watch mode. It returns once compilation has started.
//
// Resolve, create and clean errors are returned unchanged along with the
// failed task.
func (c *Controller) Compile(ctx context.Context) (*Task, error) {
	return c.start(ctx, c.Command.Watch)
}

// Watch is Compile in watch mode.
func (c *Controller) Watch(ctx context.Context) (*Task, error) {
	return c.start(ctx, true)
}

func (c *Controller) start(ctx context.Context, watch bool) (*Task, error) {
	task := newTask(watch)
	logger := c.log().With("task", task.ID)

	cfg, err := c.Resolver.Resolve(c.Override)
	if err != nil {
		task.fail()
		return task, err
	}
	if c.Transform != nil {
		if cfg, err = c.Transform(cfg); err != nil {
			task.fail()
			return task, err
		}
	}

	handle, err := c.Factory.Create(cfg)
	if err != nil {
		task.fail()
		return task, err
	}
	task.setHandle(handle)

	task.setState(StateCleaning)
	if err := c.cleaner().CleanOutput(handle.Config); err != nil {
		if !c.Suppressed {
			logger.Error(ctx, err, "cleaning output failed", "dir", handle.Config.Output.Path)
		}
		task.fail()
		return task, err
	}

	task.setState(StateCompiling)
	logger.Debug(ctx, "compiling", "watch", watch, "output", handle.Config.Output.Path)

	if watch {
		go c.watch(ctx, task, handle, logger)
	} else {
		go c.runOnce(ctx, task, handle)
	}
	return task, nil
}

func (c *Controller) runOnce(ctx context.Context, task *Task, handle *Handle) {
	stats, err := handle.Compiler.Run(ctx)

	o := c.Complete(ctx, task, handle, stats, err)
	task.setState(o.State)
	task.publish(o)
	close(task.outcomes)
}

func (c *Controller) watch(ctx context.Context, task *Task, handle *Handle, logger logging.Logger) {
	defer close(task.outcomes)

	err := handle.Compiler.Watch(ctx, c.WatchOptions, func(stats *bundler.Stats, err error) {
		o := c.Complete(ctx, task, handle, stats, err)
		if !task.publish(o) {
			logger.Debug(ctx, "outcome dropped", "sequence", o.Sequence)
		}
	})
	if err != nil && ctx.Err() == nil && !c.Suppressed {
		logger.Error(ctx, err, "watch stopped")
	}
}

// Complete handles one finished compilation: it classifies the result,
// logs diagnostics and the stats summary unless suppressed, and records
// metrics. A fatal classification or a top-level error is StateFailed.
func (c *Controller) Complete(ctx context.Context, task *Task, handle *Handle, stats *bundler.Stats, err error) Outcome {
	cls := handle.Utils.Classify(err, stats)

	state := StateDone
	if err != nil || cls.Fatal {
		state = StateFailed
	}

	o := Outcome{
		TaskID:         task.ID,
		Sequence:       task.nextSequence(),
		State:          state,
		Stats:          stats,
		Err:            err,
		Classification: cls,
		Duration:       stats.Duration(),
		FinishedAt:     time.Now(),
	}

	if !c.Suppressed {
		logger := c.log().With("task", task.ID)
		handle.Utils.LogErrors(ctx, logger, cls.Diagnostics, state == StateFailed)
		if stats != nil {
			logger.Info(ctx, stats.String(bundler.StatsOptions{Chunks: false, Colors: true}))
		}
		logger.Info(ctx, "compilation finished",
			"state", state.String(),
			"sequence", o.Sequence,
			"errors", len(cls.Diagnostics),
			"duration", o.Duration,
		)
	}

	c.Metrics.Record(o)
	return o
}

func (c *Controller) cleaner() *Cleaner {
	if c.Cleaner == nil {
		return &Cleaner{}
	}
	return c.Cleaner
}

func (c *Controller) log() logging.Logger {
	if c.Logger == nil {
		return logging.Discard()
	}
	return c.Logger
}
