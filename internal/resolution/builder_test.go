package resolution

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/pnpmpath/internal/model"
	"github.com/mmr-tortoise/pnpmpath/internal/noderesolve"
	"github.com/mmr-tortoise/pnpmpath/internal/pkgroot"
	"github.com/mmr-tortoise/pnpmpath/internal/report"
)

// pnpmProject builds a pnpm-style project under a temp directory:
//
//	node_modules/gatsby  -> .pnpm/gatsby@5.0.0/node_modules/gatsby
//	node_modules/lodash  -> .pnpm/lodash@4.17.21/node_modules/lodash
//	node_modules/.pnpm/node_modules/
//
// Packages listed in unlinked are placed in the store only.
func pnpmProject(t *testing.T, linked []string, unlinked []string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}

	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	nodeModules := filepath.Join(root, "node_modules")
	require.NoError(t, os.MkdirAll(filepath.Join(nodeModules, ".pnpm", "node_modules"), 0755))

	install := func(name string, link bool) {
		pkg := filepath.Join(storeDir(root, name), name)
		require.NoError(t, os.MkdirAll(pkg, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(pkg, "package.json"), []byte(`{"name": "`+name+`", "main": "index.js"}`), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(pkg, "index.js"), nil, 0644))
		if link {
			require.NoError(t, os.Symlink(pkg, filepath.Join(nodeModules, name)))
		}
	}
	for _, name := range linked {
		install(name, true)
	}
	for _, name := range unlinked {
		install(name, false)
	}
	return root
}

// storeDir is the node_modules directory holding name's real copy.
func storeDir(root, name string) string {
	return filepath.Join(root, "node_modules", ".pnpm", name+"@1.0.0", "node_modules")
}

func newReporter() *report.LogReporter {
	return report.NewLogReporter(zerolog.Nop())
}

func baseline(root string) []string {
	return []string{
		"node_modules",
		filepath.Join(root, "node_modules"),
		storeDir(root, "gatsby"),
		filepath.Join(root, "node_modules", ".pnpm", "node_modules"),
	}
}

func TestBuild_DefaultOptions(t *testing.T) {
	root := pnpmProject(t, []string{"gatsby"}, nil)
	rep := newReporter()

	set, err := NewBuilder(rep).Build(context.Background(), root, model.DefaultResolutionOptions())
	require.NoError(t, err)

	assert.Equal(t, baseline(root), set.Paths())
	assert.Empty(t, rep.Warnings())
	assert.False(t, rep.Panicked())
}

func TestBuild_IncludeInstalledPackage(t *testing.T) {
	root := pnpmProject(t, []string{"gatsby", "lodash"}, nil)
	rep := newReporter()

	opts := model.DefaultResolutionOptions()
	opts.Include = []string{"lodash"}
	set, err := NewBuilder(rep).Build(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, append(baseline(root), storeDir(root, "lodash")), set.Paths())
	assert.Empty(t, rep.Warnings())
}

func TestBuild_IncludeUnknownPackageWarnsOnce(t *testing.T) {
	root := pnpmProject(t, []string{"gatsby"}, nil)
	rep := newReporter()

	opts := model.DefaultResolutionOptions()
	opts.Include = []string{"not-a-real-package"}
	set, err := NewBuilder(rep).Build(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, baseline(root), set.Paths())
	require.Len(t, rep.Warnings(), 1)
	assert.Contains(t, rep.Warnings()[0], "not-a-real-package")
}

func TestBuild_StrictWithoutHostPackageIsFatal(t *testing.T) {
	root := pnpmProject(t, nil, []string{"gatsby"})
	rep := newReporter()

	opts := model.DefaultResolutionOptions()
	opts.Include = []string{"lodash"}
	_, err := NewBuilder(rep).Build(context.Background(), root, opts)
	require.Error(t, err)

	assert.True(t, errors.Is(err, model.ErrHostPackageMissing))
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitHostPackageMissing, cliErr.Code)
	assert.True(t, rep.Panicked())
	// Nothing after the host lookup runs, so include warnings never fire.
	assert.Empty(t, rep.Warnings())
}

func TestBuild_LooseWithoutHostPackage(t *testing.T) {
	root := pnpmProject(t, nil, nil)
	rep := newReporter()

	opts := model.DefaultResolutionOptions()
	opts.Strict = false
	set, err := NewBuilder(rep).Build(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"node_modules",
		filepath.Join(root, "node_modules"),
		filepath.Join(root, "node_modules", ".pnpm", "node_modules"),
	}, set.Paths())
	assert.False(t, rep.Panicked())
}

// TestBuild_HostPackageAlwaysStrict: even in loose mode the host package is
// only taken from the project's own node_modules.
func TestBuild_HostPackageAlwaysStrict(t *testing.T) {
	root := pnpmProject(t, nil, []string{"gatsby"})
	called := false
	packages := pkgroot.New(pkgroot.WithModuleResolver(noderesolve.ResolverFunc(func(string, []string) (string, error) {
		called = true
		return filepath.Join(storeDir(root, "gatsby"), "gatsby", "index.js"), nil
	})))

	opts := model.DefaultResolutionOptions()
	opts.Strict = false
	set, err := NewBuilder(newReporter(), WithPackageResolver(packages)).Build(context.Background(), root, opts)
	require.NoError(t, err)
	assert.False(t, called)
	assert.False(t, set.Contains(storeDir(root, "gatsby")))
}

func TestBuild_IncludeDirectory(t *testing.T) {
	root := pnpmProject(t, []string{"gatsby"}, nil)
	extra := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0755))

	opts := model.DefaultResolutionOptions()
	opts.Include = []string{extra, "vendor", "./vendor"}
	rep := newReporter()
	set, err := NewBuilder(rep).Build(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, append(baseline(root), extra, filepath.Join(root, "vendor")), set.Paths())
	assert.Empty(t, rep.Warnings())
}

// TestBuild_PathWinsOverPackage: an entry naming both an existing directory
// and an installed package resolves to the directory.
func TestBuild_PathWinsOverPackage(t *testing.T) {
	root := pnpmProject(t, []string{"gatsby", "lodash"}, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lodash"), 0755))

	opts := model.DefaultResolutionOptions()
	opts.Include = []string{"lodash"}
	set, err := NewBuilder(newReporter()).Build(context.Background(), root, opts)
	require.NoError(t, err)

	paths := set.Paths()
	assert.Equal(t, filepath.Join(root, "lodash"), paths[len(paths)-1])
	assert.False(t, set.Contains(storeDir(root, "lodash")))
}

func TestBuild_Deduplicates(t *testing.T) {
	root := pnpmProject(t, []string{"gatsby"}, nil)
	rep := newReporter()

	opts := model.DefaultResolutionOptions()
	opts.Include = []string{
		"gatsby",
		filepath.Join(root, "node_modules"),
		filepath.Join(root, "node_modules", ".pnpm", "node_modules") + string(filepath.Separator),
	}
	set, err := NewBuilder(rep).Build(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, baseline(root), set.Paths())
	assert.Empty(t, rep.Warnings())
}

func TestBuild_ProjectPathOverride(t *testing.T) {
	root := pnpmProject(t, []string{"gatsby"}, nil)
	parent := filepath.Dir(root)

	t.Run("absolute", func(t *testing.T) {
		opts := model.DefaultResolutionOptions()
		opts.ProjectPath = root
		set, err := NewBuilder(newReporter()).Build(context.Background(), t.TempDir(), opts)
		require.NoError(t, err)
		assert.Equal(t, baseline(root), set.Paths())
	})

	t.Run("relative to project dir", func(t *testing.T) {
		opts := model.DefaultResolutionOptions()
		opts.ProjectPath = filepath.Base(root)
		set, err := NewBuilder(newReporter()).Build(context.Background(), parent, opts)
		require.NoError(t, err)
		assert.Equal(t, baseline(root), set.Paths())
	})
}

func TestBuild_CustomVirtualStore(t *testing.T) {
	root := pnpmProject(t, []string{"gatsby"}, nil)
	manifest := "hoistPattern:\n  - '*'\nvirtualStoreDir: ../.store\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", ".modules.yaml"), []byte(manifest), 0644))

	set, err := NewBuilder(newReporter()).Build(context.Background(), root, model.DefaultResolutionOptions())
	require.NoError(t, err)

	paths := set.Paths()
	assert.Equal(t, filepath.Join(root, ".store", "node_modules"), paths[len(paths)-1])
}

func TestBuild_CustomHostPackage(t *testing.T) {
	root := pnpmProject(t, []string{"next"}, nil)

	opts := model.DefaultResolutionOptions()
	opts.HostPackage = "next"
	set, err := NewBuilder(newReporter()).Build(context.Background(), root, opts)
	require.NoError(t, err)
	assert.True(t, set.Contains(storeDir(root, "next")))
}

// orderedReporter records messages in arrival order.
type orderedReporter struct {
	mu       sync.Mutex
	messages []string
}

func (r *orderedReporter) Warn(m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

func (r *orderedReporter) Panic(m string) { r.Warn("panic: " + m) }

// TestBuild_IncludeOrderIsStable checks that concurrent resolution still
// yields entries and warnings in input order.
func TestBuild_IncludeOrderIsStable(t *testing.T) {
	linked := []string{"gatsby", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	root := pnpmProject(t, linked, nil)

	opts := model.DefaultResolutionOptions()
	opts.Include = []string{"j", "missing-1", "a", "i", "missing-2", "b", "h", "c", "g", "d", "f", "e"}
	rep := &orderedReporter{}
	set, err := NewBuilder(rep, WithConcurrency(4)).Build(context.Background(), root, opts)
	require.NoError(t, err)

	want := baseline(root)
	for _, name := range []string{"j", "a", "i", "b", "h", "c", "g", "d", "f", "e"} {
		want = append(want, storeDir(root, name))
	}
	assert.Equal(t, want, set.Paths())
	require.Len(t, rep.messages, 2)
	assert.Contains(t, rep.messages[0], "missing-1")
	assert.Contains(t, rep.messages[1], "missing-2")
}

func TestBuild_CancelledContext(t *testing.T) {
	root := pnpmProject(t, []string{"gatsby"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := newReporter()
	_, err := NewBuilder(rep).Build(ctx, root, model.DefaultResolutionOptions())
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, rep.Panicked())
}
