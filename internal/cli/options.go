package cli

import (
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pnpmpath/internal/config"
	"github.com/mmr-tortoise/pnpmpath/internal/model"
)

// optionFlags are the resolution option flags shared by resolve and apply.
// Only flags the user actually set override the options file and the
// environment.
type optionFlags struct {
	optionsFile string
	strict      bool
	include     []string
	projectPath string
	hostPackage string
}

func (f *optionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.optionsFile, "options", "", "Options file (default: pnpmpath.yaml, .yml or .toml in the project directory)")
	cmd.Flags().BoolVar(&f.strict, "strict", true, "Only resolve packages linked directly into the project's node_modules")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "Extra package names or directories to add (repeatable, comma-separated)")
	cmd.Flags().StringVar(&f.projectPath, "project-path", "", "Project root, if different from the project directory")
	cmd.Flags().StringVar(&f.hostPackage, "host-package", "", "Host framework package (default: gatsby)")
}

// load merges the options file, environment and changed flags.
func (f *optionFlags) load(cmd *cobra.Command, dir string) (model.ResolutionOptions, error) {
	overrides := make(map[string]interface{})
	flags := cmd.Flags()
	if flags.Changed("strict") {
		overrides["strict"] = f.strict
	}
	if flags.Changed("include") {
		overrides["include"] = f.include
	}
	if flags.Changed("project-path") {
		overrides["project_path"] = f.projectPath
	}
	if flags.Changed("host-package") {
		overrides["host_package"] = f.hostPackage
	}

	return config.Load(config.LoadParams{
		ProgramDir:  dir,
		OptionsFile: f.optionsFile,
		Overrides:   overrides,
	})
}
