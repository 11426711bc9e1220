package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pnpmpath/internal/bundler"
	"github.com/mmr-tortoise/pnpmpath/internal/logging"
	"github.com/mmr-tortoise/pnpmpath/internal/model"
	"github.com/mmr-tortoise/pnpmpath/internal/plugin"
	"github.com/mmr-tortoise/pnpmpath/internal/report"
)

// applyFlags holds the flag values for the apply command.
type applyFlags struct {
	optionFlags

	// config is the webpack configuration document to rewrite; "-" is stdin.
	config string

	// output is where the rewritten document goes; empty or "-" is stdout.
	output string

	// format is the output format. Empty means the input's format.
	format string
}

// NewApplyCommand creates the "apply" cobra command.
func NewApplyCommand() *cobra.Command {
	flags := &applyFlags{}

	cmd := &cobra.Command{
		Use:   "apply [dir]",
		Short: "Rewrite a webpack configuration for a pnpm project",
		Long: `Rewrite a webpack configuration document so that resolve.modules and
resolveLoader.modules hold the project's resolution set, and the framework
split-chunk cache group matches packages through pnpm's symlinks.

The document may be JSON (comments allowed) or YAML. All other fields are
preserved.

Examples:
  pnpmpath apply --config webpack.json --output webpack.pnpm.json
  pnpmpath apply ./site --config - --format yaml < webpack.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), cmd, flags, args)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "Webpack configuration document (\"-\" for stdin)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the result to this file instead of stdout")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: json or yaml (default: the input format)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// runApply reads the configuration, runs the hook over it, validates the
// result and writes it out.
func runApply(ctx context.Context, cmd *cobra.Command, flags *applyFlags, args []string) error {
	logger := logging.Get("cli")

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

	// Step 3: Read the configuration document.
	cfg, inputFormat, err := readConfig(cmd, flags.config)
	if err != nil {
		return err
	}

	outputFormat := inputFormat
	if flags.format != "" {
		outputFormat, err = bundler.ParseFormat(flags.format)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "invalid --format", err)
		}
	}

	// Step 4: Run the hook. A fatal report returns before anything is replaced.
	var rewritten bundler.Config
	rep := report.NewLogReporter(logging.Get("reporter"))
	err = plugin.OnCreateWebpackConfig(ctx, plugin.Args{
		Actions:          plugin.ActionsFunc(func(c bundler.Config) { rewritten = c }),
		Reporter:         rep,
		GetConfig:        func() bundler.Config { return cfg },
		ProgramDirectory: dir,
	}, opts)
	if err != nil {
		return err
	}

	// Step 5: Validate the rewritten document.
	if errs := bundler.Validate(rewritten); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return model.NewCLIError(model.ExitConfigInvalid, strings.Join(msgs, "; "))
	}

	// Step 6: Render and write.
	data, err := bundler.Marshal(rewritten, outputFormat)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigInvalid, "failed to render configuration", err)
	}

	if flags.output == "" || flags.output == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := bundler.WriteConfig(flags.output, data); err != nil {
		return err
	}
	logger.Info().Str("path", flags.output).Int("warnings", len(rep.Warnings())).Msg("configuration written")
	return nil
}

// readConfig reads the document named by path, or stdin for "-".
// It also returns the format the document was read in.
func readConfig(cmd *cobra.Command, path string) (bundler.Config, bundler.Format, error) {
	if path == "-" {
		cfg, err := bundler.ReadConfig(cmd.InOrStdin(), bundler.FormatJSON)
		if err != nil {
			return nil, "", model.WrapCLIError(model.ExitConfigInvalid, "failed to read configuration from stdin", err)
		}
		return cfg, bundler.FormatJSON, nil
	}

	cfg, err := bundler.LoadConfig(path)
	if err != nil {
		if _, ok := err.(*model.CLIError); ok {
			return nil, "", err
		}
		return nil, "", model.WrapCLIError(model.ExitConfigInvalid, fmt.Sprintf("invalid configuration %s", path), err)
	}
	return cfg, bundler.FormatFromPath(path), nil
}
