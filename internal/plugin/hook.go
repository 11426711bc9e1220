// Package plugin is the build-tool hook: it turns a resolution set into a
// rewritten webpack configuration and hands it back to the host.
package plugin

import (
	"context"
	"errors"

	"github.com/mmr-tortoise/pnpmpath/internal/bundler"
	"github.com/mmr-tortoise/pnpmpath/internal/logging"
	"github.com/mmr-tortoise/pnpmpath/internal/model"
	"github.com/mmr-tortoise/pnpmpath/internal/noderesolve"
	"github.com/mmr-tortoise/pnpmpath/internal/report"
	"github.com/mmr-tortoise/pnpmpath/internal/resolution"
)

// Actions is the host's side of the hook.
type Actions interface {
	// ReplaceWebpackConfig hands the rewritten configuration back to the host.
	ReplaceWebpackConfig(cfg bundler.Config)
}

// ActionsFunc adapts a function to Actions.
type ActionsFunc func(cfg bundler.Config)

// ReplaceWebpackConfig calls f(cfg).
func (f ActionsFunc) ReplaceWebpackConfig(cfg bundler.Config) {
	f(cfg)
}

// Args is what the host passes to OnCreateWebpackConfig.
type Args struct {
	Actions  Actions
	Reporter report.Reporter

	// GetConfig returns the host's current webpack configuration.
	GetConfig func() bundler.Config

	// ProgramDirectory is the site directory the host runs in. It is the
	// project root unless ResolutionOptions.ProjectPath overrides it, and
	// the directory framework packages are resolved from.
	ProgramDirectory string

	// Resolver resolves framework package manifests. Nil means the
	// filesystem-backed Node resolver.
	Resolver noderesolve.Resolver

	// Builder computes the resolution set. Nil means a default Builder
	// reporting to Reporter.
	Builder *resolution.Builder
}

// OnCreateWebpackConfig rewrites the host's webpack configuration for a pnpm
// project:
//
//  1. Build the resolution set for ProgramDirectory.
//  2. Point resolve.modules and resolveLoader.modules at it.
//  3. Patch the framework cache group.
//  4. Call ReplaceWebpackConfig once.
//
// When the host package is missing in strict mode the error from step 1 is
// returned and the configuration is neither read nor replaced.
func OnCreateWebpackConfig(ctx context.Context, args Args, opts model.ResolutionOptions) error {
	logger := logging.Get("plugin")
	done := logging.LogOperationStart(logger, "onCreateWebpackConfig")
	defer done()

	if args.Actions == nil || args.GetConfig == nil || args.Reporter == nil {
		return errors.New("plugin: Actions, GetConfig and Reporter are required")
	}

	builder := args.Builder
	if builder == nil {
		builder = resolution.NewBuilder(args.Reporter)
	}

	set, err := builder.Build(ctx, args.ProgramDirectory, opts)
	if err != nil {
		return err
	}

	cfg := args.GetConfig()
	if cfg == nil {
		cfg = bundler.Config{}
	}
	cfg.SetModules(set)

	r := args.Resolver
	if r == nil {
		r = noderesolve.NewOS()
	}
	if bundler.PatchFrameworkCache(cfg, args.ProgramDirectory, r) {
		logger.Info().Msg("framework cache group patched")
	}

	args.Actions.ReplaceWebpackConfig(cfg)
	logger.Info().Int("modules", set.Len()).Msg("webpack configuration replaced")
	return nil
}
