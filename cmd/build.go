package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/bundlekit/internal/build"
	"github.com/conneroisu/bundlekit/internal/config"
)

var (
	buildWatch     bool
	buildJSONStats bool
)

// errBuildFailed is returned when the last compilation was classified as
// failed; its diagnostics have already been logged.
var errBuildFailed = errors.New("build failed")

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Compile the bundle",
	Long: `Resolve the bundle configuration, clean the output directory and run the
bundler once. With --watch the bundler keeps running and recompiles on
every change until interrupted.

Examples:
  bundlekit build                 # One-shot production build
  bundlekit build --env dev       # One-shot development build
  bundlekit build --watch         # Rebuild on change
  bundlekit build --json-stats    # Print the bundler's stats as JSON`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "Recompile on every change")
	buildCmd.Flags().BoolVar(&buildJSONStats, "json-stats", false, "Write the stats of the compilation to stdout as JSON")
}

func runBuild(cmd *cobra.Command, args []string) error {
	return compile(cmd, config.Command{Watch: buildWatch, Env: settings.Env})
}

// compile runs the lifecycle for command and reports its outcomes.
func compile(cmd *cobra.Command, command config.Command) error {
	ctx := cmd.Context()
	controller := newController(settings, command, build.NewMetrics(nil))

	task, err := controller.Compile(ctx)
	if err != nil {
		return err
	}

	if !command.Watch {
		outcome, err := task.Wait(ctx)
		if err != nil {
			return err
		}
		if buildJSONStats && outcome.Stats != nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(outcome.Stats); err != nil {
				return fmt.Errorf("writing stats: %w", err)
			}
		}
		if outcome.State == build.StateFailed {
			return errBuildFailed
		}
		return nil
	}

	logger.Info(ctx, "watching for changes", "task", task.ID)
	for outcome := range task.Outcomes() {
		if buildJSONStats && outcome.Stats != nil {
			if err := json.NewEncoder(cmd.OutOrStdout()).Encode(outcome.Stats); err != nil {
				return fmt.Errorf("writing stats: %w", err)
			}
		}
	}
	return nil
}
