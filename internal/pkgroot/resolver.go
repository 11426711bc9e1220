// Package pkgroot locates the node_modules directory that holds a package's
// real, symlink-dereferenced copy.
//
// With pnpm, node_modules/<name> is a symlink into the virtual store
// (node_modules/.pnpm/<name>@<version>/node_modules/<name>). The store
// directory that contains the real copy also contains the package's own
// dependencies, which makes it a useful module-search root.
package pkgroot

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mmr-tortoise/pnpmpath/internal/fsprobe"
	"github.com/mmr-tortoise/pnpmpath/internal/logging"
	"github.com/mmr-tortoise/pnpmpath/internal/modroot"
	"github.com/mmr-tortoise/pnpmpath/internal/noderesolve"
)

// Query describes one package lookup.
type Query struct {
	// PackageName is the package to locate, e.g. "gatsby" or "@babel/core".
	PackageName string

	// ModuleRootDir is the node_modules directory the lookup starts from.
	ModuleRootDir string

	// Strict limits the lookup to ModuleRootDir/PackageName. When false,
	// the host module resolution searches the whole node_modules hierarchy.
	Strict bool
}

// Resolver answers Queries. Both collaborators are injected so tests can
// run the loose path without a real node_modules tree.
type Resolver struct {
	fs       *fsprobe.Inspector
	modules  noderesolve.Resolver
	realpath func(string) (string, error)
	logger   zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithInspector sets the existence checker.
func WithInspector(in *fsprobe.Inspector) Option {
	return func(r *Resolver) { r.fs = in }
}

// WithModuleResolver sets the host module resolution used in loose mode.
func WithModuleResolver(m noderesolve.Resolver) Option {
	return func(r *Resolver) { r.modules = m }
}

// WithRealpath sets the symlink dereference used in strict mode.
func WithRealpath(fn func(string) (string, error)) Option {
	return func(r *Resolver) { r.realpath = fn }
}

// New returns a Resolver for the real filesystem, adjusted by opts.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		fs:       fsprobe.NewOS(),
		modules:  noderesolve.NewOS(),
		realpath: filepath.EvalSymlinks,
		logger:   logging.Get("pkgroot"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the node_modules directory enclosing the real location of
// q.PackageName, or "" when the package cannot be found. Failures are never
// returned as errors; every problem degrades to "".
//
// In strict mode the package must be linked directly into q.ModuleRootDir
// and the link is dereferenced before walking up. In loose mode the host
// module resolution already returns a real path, which is used as is.
func (r *Resolver) Resolve(ctx context.Context, q Query) string {
	if ctx.Err() != nil {
		return ""
	}

	pkgPath, ok := r.locate(q)
	if !ok {
		return ""
	}

	if _, ok := r.fs.Exists(pkgPath); !ok {
		r.logger.Debug().Str("package", q.PackageName).Str("path", pkgPath).Msg("package path does not exist")
		return ""
	}

	if q.Strict {
		real, err := r.realpath(pkgPath)
		if err != nil {
			r.logger.Debug().Err(err).Str("path", pkgPath).Msg("realpath failed")
			return ""
		}
		pkgPath = real
	}

	root := modroot.WalkToRoot(pkgPath)
	r.logger.Debug().
		Str("package", q.PackageName).
		Bool("strict", q.Strict).
		Str("moduleRoot", root).
		Msg("resolved package root")
	return root
}

// locate returns the path that represents the package before dereferencing.
func (r *Resolver) locate(q Query) (string, bool) {
	if q.PackageName == "" {
		return "", false
	}
	if q.Strict {
		return filepath.Join(q.ModuleRootDir, q.PackageName), true
	}

	resolved, err := r.modules.Resolve(q.PackageName, []string{q.ModuleRootDir})
	if err != nil {
		r.logger.Debug().Err(err).Str("package", q.PackageName).Msg("module resolution failed")
		return "", false
	}
	return resolved, true
}
