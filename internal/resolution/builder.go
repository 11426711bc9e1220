// Package resolution builds the ordered list of module-search directories
// a bundler needs for a pnpm project.
//
// The list always looks like:
//
//	node_modules                               bareword, keeps default lookup
//	<root>/node_modules                        the project's own links
//	<store>/<host>@<version>/node_modules      where the host package really lives
//	<root>/node_modules/.pnpm/node_modules     pnpm's hoisted store packages
//	<one entry per resolved include>           in input order
//
// with duplicates removed, first occurrence kept.
package resolution

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mmr-tortoise/pnpmpath/internal/fsprobe"
	"github.com/mmr-tortoise/pnpmpath/internal/logging"
	"github.com/mmr-tortoise/pnpmpath/internal/model"
	"github.com/mmr-tortoise/pnpmpath/internal/pkgroot"
	"github.com/mmr-tortoise/pnpmpath/internal/report"
	"github.com/mmr-tortoise/pnpmpath/internal/vstore"
)

// defaultConcurrency bounds parallel include lookups.
const defaultConcurrency = 8

// Builder computes resolution sets. A Builder holds no per-run state and
// may be reused.
type Builder struct {
	packages    *pkgroot.Resolver
	stores      *vstore.Locator
	fs          *fsprobe.Inspector
	reporter    report.Reporter
	logger      zerolog.Logger
	concurrency int
}

// Option configures a Builder.
type Option func(*Builder)

// WithPackageResolver sets the package-root resolver.
func WithPackageResolver(r *pkgroot.Resolver) Option {
	return func(b *Builder) { b.packages = r }
}

// WithStoreLocator sets the virtual store locator.
func WithStoreLocator(l *vstore.Locator) Option {
	return func(b *Builder) { b.stores = l }
}

// WithInspector sets the directory checker used for include entries.
func WithInspector(in *fsprobe.Inspector) Option {
	return func(b *Builder) { b.fs = in }
}

// WithConcurrency bounds how many include entries are resolved at once.
// Values below 1 mean one at a time.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n < 1 {
			n = 1
		}
		b.concurrency = n
	}
}

// NewBuilder returns a Builder that reports to reporter and works on the
// real filesystem unless opts say otherwise.
func NewBuilder(reporter report.Reporter, opts ...Option) *Builder {
	b := &Builder{
		reporter:    reporter,
		logger:      logging.Get("resolution"),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.fs == nil {
		b.fs = fsprobe.NewOS()
	}
	if b.stores == nil {
		b.stores = vstore.New(b.fs.Fs())
	}
	if b.packages == nil {
		b.packages = pkgroot.New(pkgroot.WithInspector(b.fs))
	}
	return b
}

// Build returns the resolution set for the project in projectDir.
//
// projectDir is the directory the host reports; opts.ProjectPath, when set,
// replaces it (relative values are taken relative to projectDir). If the
// host package cannot be found while opts.Strict is set, Build reports a
// panic and returns an error wrapping model.ErrHostPackageMissing; the
// partial set must not be applied.
func (b *Builder) Build(ctx context.Context, projectDir string, opts model.ResolutionOptions) (model.ResolutionSet, error) {
	done := logging.LogOperationStart(b.logger, "build resolution set")
	defer done()

	if err := ctx.Err(); err != nil {
		return model.ResolutionSet{}, err
	}

	hostPackage := opts.HostPackage
	if hostPackage == "" {
		hostPackage = model.DefaultHostPackage
	}

	// Step 1: Pick the project root.
	rootDir := rootDirectory(projectDir, opts.ProjectPath)

	// Step 2-3: Seed with the bareword and the project's node_modules.
	nodeModules := filepath.Join(rootDir, "node_modules")
	set := model.NewResolutionSet(model.BareModulesDir, nodeModules)

	// Step 4: The host package must be linked directly into node_modules.
	hostRoot := b.packages.Resolve(ctx, pkgroot.Query{
		PackageName:   hostPackage,
		ModuleRootDir: nodeModules,
		Strict:        true,
	})
	switch {
	case hostRoot != "":
		set.Add(hostRoot)
	case opts.Strict:
		msg := fmt.Sprintf("Unable to find %s in %s. Is it a direct dependency of the project? Strict mode requires the host package to be linked into the project's node_modules.", hostPackage, nodeModules)
		b.reporter.Panic(msg)
		return set, model.WrapCLIError(model.ExitHostPackageMissing, fmt.Sprintf("cannot resolve %s", hostPackage), model.ErrHostPackageMissing)
	default:
		b.logger.Debug().Str("package", hostPackage).Msg("host package not linked, skipping")
	}

	// Step 5: pnpm's hoisted store packages.
	set.Add(b.stores.NodeModulesDir(nodeModules))

	// Step 6: Include entries, resolved concurrently but applied in order.
	resolved, err := b.resolveIncludes(ctx, rootDir, nodeModules, opts)
	if err != nil {
		return set, err
	}
	for i, entry := range opts.Include {
		if resolved[i] == "" {
			b.reporter.Warn(fmt.Sprintf("Unable to resolve %q to a directory or a package; it will not be added to the module search paths.", entry))
			continue
		}
		set.Add(resolved[i])
	}

	b.logger.Debug().Strs("modules", set.Paths()).Msg("resolution set built")
	return set, nil
}

// resolveIncludes resolves every include entry. The result has one slot per
// entry, in input order; "" marks an entry that could not be resolved.
func (b *Builder) resolveIncludes(ctx context.Context, rootDir, nodeModules string, opts model.ResolutionOptions) ([]string, error) {
	results := make([]string, len(opts.Include))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, entry := range opts.Include {
		i, entry := i, entry
		g.Go(func() error {
			results[i] = b.resolveInclude(gctx, rootDir, nodeModules, entry, opts.Strict)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolving include entries: %w", err)
	}
	return results, nil
}

// resolveInclude treats entry as a directory first and as a package second.
func (b *Builder) resolveInclude(ctx context.Context, rootDir, nodeModules, entry string, strict bool) string {
	dir := entry
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootDir, dir)
	}
	if b.fs.IsDir(dir) {
		return filepath.Clean(dir)
	}

	return b.packages.Resolve(ctx, pkgroot.Query{
		PackageName:   entry,
		ModuleRootDir: nodeModules,
		Strict:        strict,
	})
}

// rootDirectory returns the absolute project root.
func rootDirectory(projectDir, projectPath string) string {
	root := projectDir
	if projectPath != "" {
		root = projectPath
		if !filepath.IsAbs(root) {
			root = filepath.Join(projectDir, root)
		}
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}
