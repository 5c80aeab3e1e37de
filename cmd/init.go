package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/bundlekit/internal/scaffolding"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:     "init",
	Aliases: []string{"i"},
	Short:   "Scaffold a new project",
	Long: `Create the starter files of a bundlekit project in the project root:
src/entry.js, src/styles.scss, index.html and .eslintrc.json. Existing
files are kept unless --force is given.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	gen := scaffolding.NewProjectGenerator(settings.Project.Root, settings.Project.Name, "")
	gen.Force = initForce

	result, err := gen.Generate()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, path := range result.Created {
		fmt.Fprintf(out, "created %s\n", path)
	}
	for _, path := range result.Skipped {
		fmt.Fprintf(out, "skipped %s (exists, use --force to overwrite)\n", path)
	}
	return nil
}
