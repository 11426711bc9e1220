package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pnpmpath/internal/model"
	"github.com/mmr-tortoise/pnpmpath/internal/modroot"
)

// NewRootDirCommand creates the "root" cobra command, which prints the
// innermost node_modules directory enclosing a path.
func NewRootDirCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "root <path>",
		Short: "Print the node_modules directory enclosing a path",
		Long: `Print the innermost node_modules directory that contains path. The path
is not dereferenced and does not need to exist.

Examples:
  pnpmpath root node_modules/.pnpm/react@18.2.0/node_modules/react/index.js`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := modroot.WalkToRoot(args[0])
			if root == "" {
				return model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("%s is not inside a node_modules directory", args[0]))
			}

			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"path": args[0], "moduleRoot": root})
			}
			fmt.Fprintln(cmd.OutOrStdout(), root)
			return nil
		},
	}
}
