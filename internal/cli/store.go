package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pnpmpath/internal/vstore"
)

// NewStoreCommand creates the "store" cobra command.
func NewStoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "store [dir]",
		Short: "Print the pnpm virtual store directory of a project",
		Long: `Print the virtual store directory recorded in node_modules/.modules.yaml
(default: node_modules/.pnpm) and the store's hoisted node_modules directory.

Examples:
  pnpmpath store
  pnpmpath store ./site --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}

			nodeModules := filepath.Join(dir, "node_modules")
			locator := vstore.NewOS()
			result := storeResultJSON{
				VirtualStoreDir: locator.Locate(nodeModules),
				NodeModulesDir:  locator.NodeModulesDir(nodeModules),
			}

			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "virtual store: %s\nnode_modules:  %s\n", result.VirtualStoreDir, result.NodeModulesDir)
			return nil
		},
	}
}

// storeResultJSON is the JSON output of the store command.
type storeResultJSON struct {
	VirtualStoreDir string `json:"virtualStoreDir"`
	NodeModulesDir  string `json:"nodeModulesDir"`
}
