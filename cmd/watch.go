package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/bundlekit/internal/config"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Compile the bundle on every change",
	Long: `Same as "bundlekit build --watch": compile once, then recompile whenever a
source file changes. Output, cache and ignored directories are not watched.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&buildJSONStats, "json-stats", false, "Write the stats of every compilation to stdout as JSON")
}

func runWatch(cmd *cobra.Command, args []string) error {
	return compile(cmd, config.Command{Watch: true, Env: settings.Env})
}
