package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/testrunner"
)

var (
	testWatch bool
	testCover bool
)

var testCmd = &cobra.Command{
	Use:     "test",
	Aliases: []string{"t"},
	Short:   "Run the project's test runner",
	Long: `Spawn the configured test runner and relay its output. With --cover the
coverage runner is used instead and its report, written to stderr, is
logged at info level.

Examples:
  bundlekit test            # mocha --colors test
  bundlekit test --watch    # mocha --colors --watch
  bundlekit test --cover    # istanbul cover _mocha -- --colors test`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().BoolVarP(&testWatch, "watch", "w", false, "Run the test runner in watch mode")
	testCmd.Flags().BoolVar(&testCover, "cover", false, "Run the tests under the coverage runner")
}

func runTest(cmd *cobra.Command, args []string) error {
	supervisor := &testrunner.Supervisor{
		Settings: settings.Test,
		Dir:      settings.Project.Root,
		Logger:   logger,
	}
	return supervisor.Run(cmd.Context(), config.Command{
		Watch: testWatch && !testCover,
		Cover: testCover,
		Env:   settings.Env,
	})
}
