package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pnpmpath/internal/bundler"
	"github.com/mmr-tortoise/pnpmpath/internal/model"
	"github.com/mmr-tortoise/pnpmpath/internal/noderesolve"
)

// frameworksFlags holds the flag values for the frameworks command.
type frameworksFlags struct {
	// pattern is the framework cache group regex as a JavaScript literal.
	pattern string
}

// NewFrameworksCommand creates the "frameworks" cobra command.
func NewFrameworksCommand() *cobra.Command {
	flags := &frameworksFlags{}

	cmd := &cobra.Command{
		Use:   "frameworks [dir]",
		Short: "Show where framework cache group packages resolve",
		Long: `Extract the package names from a framework cache group regex and show
the directory each one resolves to from dir. Unresolvable packages are
listed with "-"; they would be left out of the patched cache group.

Examples:
  pnpmpath frameworks --pattern '/[\\/]node_modules[\\/](react|react-dom|scheduler)[\\/]/'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFrameworks(cmd, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.pattern, "pattern", "p", "", "Cache group regex literal, e.g. /...(react|react-dom).../")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

// frameworkJSON is one row of the frameworks command output.
type frameworkJSON struct {
	Name      string `json:"name"`
	Directory string `json:"directory,omitempty"`
}

func runFrameworks(cmd *cobra.Command, flags *frameworksFlags, args []string) error {
	// Step 1: Determine the site directory.
	dir, err := projectDir(args)
	if err != nil {
		return err
	}

	// Step 2: Extract package names.
	names, ok := bundler.FrameworkPackages(flags.pattern)
	if !ok {
		return model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("no package group found in pattern %s", flags.pattern))
	}

	// Step 3: Resolve each package on its own so failures stay visible.
	r := noderesolve.NewOS()
	rows := make([]frameworkJSON, 0, len(names))
	for _, name := range names {
		row := frameworkJSON{Name: name}
		if dirs := bundler.ResolvePackageDirs([]string{name}, dir, r); len(dirs) == 1 {
			row.Directory = dirs[0]
		}
		rows = append(rows, row)
	}

	// Step 4: Output.
	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), map[string][]frameworkJSON{"frameworks": rows})
	}
	printFrameworksText(cmd.OutOrStdout(), rows)
	return nil
}

// printFrameworksText outputs the rows as an aligned table:
//
//	PACKAGE              DIRECTORY
//	react                /site/node_modules/.pnpm/react@18.2.0/node_modules/react/
//	scheduler            -
func printFrameworksText(w io.Writer, rows []frameworkJSON) {
	fmt.Fprintf(w, "%-20s %s\n", "PACKAGE", "DIRECTORY")
	for _, row := range rows {
		fmt.Fprintf(w, "%-20s %s\n", row.Name, FormatDirectory(row.Directory))
	}
}

// FormatDirectory returns dir, or "-" when it is empty.
func FormatDirectory(dir string) string {
	if dir == "" {
		return "-"
	}
	return dir
}
