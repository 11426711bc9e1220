package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pnpmpath/internal/logging"
	"github.com/mmr-tortoise/pnpmpath/internal/model"
	"github.com/mmr-tortoise/pnpmpath/internal/report"
	"github.com/mmr-tortoise/pnpmpath/internal/resolution"
)

// NewResolveCommand creates the "resolve" cobra command.
func NewResolveCommand() *cobra.Command {
	flags := &optionFlags{}

	cmd := &cobra.Command{
		Use:   "resolve [dir]",
		Short: "Print the module search directories for a project",
		Long: `Print the ordered module search directories webpack should use for the
project in dir (default: the current directory).

Examples:
  pnpmpath resolve
  pnpmpath resolve ./site --include lodash --include ../shared
  pnpmpath resolve --strict=false --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), cmd, flags, args)
		},
	}

	flags.register(cmd)
	return cmd
}

// resolveResultJSON is the JSON output of the resolve command.
type resolveResultJSON struct {
	Modules  []string `json:"modules"`
	Warnings []string `json:"warnings"`
}

// runResolve loads options, builds the resolution set and prints it.
func runResolve(ctx context.Context, cmd *cobra.Command, flags *optionFlags, args []string) error {
	// Step 1: Determine the project directory.
	dir, err := projectDir(args)
	if err != nil {
		return err
	}

	// Step 2: Load options.
	opts, err := flags.load(cmd, dir)
	if err != nil {
		return err
	}

	// Step 3: Build the resolution set.
	rep := report.NewLogReporter(logging.Get("reporter"))
	set, err := resolution.NewBuilder(rep).Build(ctx, dir, opts)
	if err != nil {
		return err
	}

	// Step 4: Output.
	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		return printJSON(out, resolveResultJSON{
			Modules:  set.Paths(),
			Warnings: rep.Warnings(),
		})
	}
	printResolveText(out, set)
	return nil
}

// printResolveText prints one directory per line.
func printResolveText(w io.Writer, set model.ResolutionSet) {
	for _, p := range set.Paths() {
		fmt.Fprintln(w, p)
	}
}
