// Package testrunner spawns the project's test runner and relays its
// output to the logger.
package testrunner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/errors"
	"github.com/conneroisu/bundlekit/internal/logging"
	"github.com/conneroisu/bundlekit/internal/validation"
)

// Supervisor runs one test-runner process per Run call.
type Supervisor struct {
	Settings config.TestSettings
	// Dir is the working directory, normally the project root.
	Dir    string
	Logger logging.Logger
}

// Invocation returns the command line Run would execute for cmd. Cover
// takes precedence over watch.
func (s *Supervisor) Invocation(cmd config.Command) (string, []string) {
	if cmd.Cover {
		return s.Settings.CoverRunner, append([]string(nil), s.Settings.CoverArgs...)
	}
	if cmd.Watch {
		return s.Settings.Runner, append([]string(nil), s.Settings.WatchArgs...)
	}
	return s.Settings.Runner, append([]string(nil), s.Settings.Args...)
}

// Run starts the runner and relays stdout at info level, and stderr at info
// level under coverage (the coverage reporter writes there) or error level
// otherwise. It returns once the process has exited and both streams are
// drained. Only the relay is performed; test results are not parsed.
func (s *Supervisor) Run(ctx context.Context, cmd config.Command) error {
	logger := s.log().WithComponent("test")

	name, args := s.Invocation(cmd)
	if err := validation.ValidateCommand(name, nil); err != nil {
		return errors.NewValidationError(errors.ErrCodeCommandInjection, err.Error())
	}
	for _, arg := range args {
		if err := validation.ValidateArgument(arg); err != nil {
			return errors.NewValidationError(errors.ErrCodeCommandInjection,
				fmt.Sprintf("invalid test runner argument '%s': %v", arg, err))
		}
	}

	proc := exec.CommandContext(ctx, name, args...)
	proc.Dir = s.Dir

	stdout, err := proc.StdoutPipe()
	if err != nil {
		return errors.NewProcessError(errors.ErrCodeProcessStart, "attaching test runner stdout", err)
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		return errors.NewProcessError(errors.ErrCodeProcessStart, "attaching test runner stderr", err)
	}

	logger.Debug(ctx, "starting test runner", "command", name, "args", args, "cover", cmd.Cover, "watch", cmd.Watch)
	if err := proc.Start(); err != nil {
		logger.Error(ctx, err, "test runner failed to start", "command", name)
		return errors.NewProcessError(errors.ErrCodeProcessStart, "starting "+name, err).
			WithContext("command", name)
	}

	var g errgroup.Group
	g.Go(func() error {
		return relay(stdout, func(line string) { logger.Info(ctx, line) })
	})
	g.Go(func() error {
		if cmd.Cover {
			return relay(stderr, func(line string) { logger.Info(ctx, line) })
		}
		return relay(stderr, func(line string) { logger.Error(ctx, nil, line) })
	})

	// Wait closes the pipes, so the streams must be drained first.
	relayErr := g.Wait()
	waitErr := proc.Wait()

	if waitErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.NewProcessError(errors.ErrCodeProcessExit, name+" failed", waitErr).
			WithContext("exit_code", proc.ProcessState.ExitCode())
	}
	if relayErr != nil {
		return errors.NewProcessError(errors.ErrCodeProcessExit, "reading test runner output", relayErr)
	}
	return nil
}

// maxLine bounds one relayed log line. Longer output lines are relayed in
// maxLine chunks so the pipe is always drained.
const maxLine = 64 * 1024

func relay(r io.Reader, emit func(string)) error {
	br := bufio.NewReaderSize(r, maxLine)
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 {
			emit(strings.TrimRight(string(chunk), "\r\n"))
		}
		switch err {
		case nil, bufio.ErrBufferFull:
		case io.EOF:
			return nil
		default:
			return err
		}
	}
}

func (s *Supervisor) log() logging.Logger {
	if s.Logger == nil {
		return logging.Discard()
	}
	return s.Logger
}
