package noderesolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
)

// ErrModuleNotFound is wrapped by every resolution failure.
var ErrModuleNotFound = errors.New("cannot find module")

// Resolver resolves a specifier to a file path, searching from each of paths.
type Resolver interface {
	Resolve(specifier string, paths []string) (string, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(specifier string, paths []string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(specifier string, paths []string) (string, error) {
	return f(specifier, paths)
}

// extensions are probed, in order, after the exact file name.
var extensions = []string{".js", ".json", ".node"}

// NodeResolver implements Node's module lookup over an afero filesystem.
type NodeResolver struct {
	fs       afero.Fs
	realpath func(string) (string, error)
}

// Option configures a NodeResolver.
type Option func(*NodeResolver)

// WithRealpath sets the function used to dereference the resolved file.
// The default keeps the path unchanged, which suits in-memory filesystems.
func WithRealpath(fn func(string) (string, error)) Option {
	return func(r *NodeResolver) {
		r.realpath = fn
	}
}

// New returns a NodeResolver reading from fs.
func New(fs afero.Fs, opts ...Option) *NodeResolver {
	r := &NodeResolver{
		fs:       fs,
		realpath: func(p string) (string, error) { return p, nil },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewOS returns a NodeResolver for the real filesystem. Results are
// symlink-dereferenced, like Node without --preserve-symlinks.
func NewOS() *NodeResolver {
	return New(afero.NewOsFs(), WithRealpath(filepath.EvalSymlinks))
}

// Resolve finds the file specifier refers to, searching from each entry in
// paths. Bare specifiers are looked up in the node_modules hierarchy of
// every path; relative specifiers are joined to every path; absolute
// specifiers are used as is.
func (r *NodeResolver) Resolve(specifier string, paths []string) (string, error) {
	if specifier == "" {
		return "", fmt.Errorf("%w: empty specifier", ErrModuleNotFound)
	}

	for _, candidate := range r.candidates(specifier, paths) {
		if found, ok := r.loadAsFile(candidate); ok {
			return r.real(found)
		}
		if found, ok := r.loadAsDirectory(candidate); ok {
			return r.real(found)
		}
	}

	return "", fmt.Errorf("%w: %q (searched from %s)", ErrModuleNotFound, specifier, strings.Join(paths, ", "))
}

// candidates lists the absolute paths to try for specifier, in order,
// without duplicates.
func (r *NodeResolver) candidates(specifier string, paths []string) []string {
	if filepath.IsAbs(specifier) {
		return []string{filepath.Clean(specifier)}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	relative := isRelative(specifier)
	for _, p := range paths {
		base, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if relative {
			add(filepath.Join(base, specifier))
			continue
		}
		for _, dir := range NodeModulePaths(base) {
			add(filepath.Join(dir, specifier))
		}
	}
	return out
}

// isRelative reports whether specifier starts with ./ or ../ (or is . or ..).
func isRelative(specifier string) bool {
	if specifier == "." || specifier == ".." {
		return true
	}
	for _, prefix := range []string{"./", "../", `.\`, `..\`} {
		if strings.HasPrefix(specifier, prefix) {
			return true
		}
	}
	return false
}

// NodeModulePaths returns the node_modules directories Node searches for a
// module required from dir: dir/node_modules and the node_modules directory
// of every ancestor, nearest first. A directory that is itself named
// node_modules does not get a nested node_modules entry.
func NodeModulePaths(dir string) []string {
	dir = filepath.Clean(dir)

	var paths []string
	for {
		if filepath.Base(dir) != "node_modules" {
			paths = append(paths, filepath.Join(dir, "node_modules"))
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return paths
		}
		dir = parent
	}
}

// loadAsFile tries p and p with each known extension as a regular file.
func (r *NodeResolver) loadAsFile(p string) (string, bool) {
	if r.isFile(p) {
		return p, true
	}
	for _, ext := range extensions {
		if r.isFile(p + ext) {
			return p + ext, true
		}
	}
	return "", false
}

// loadAsDirectory resolves a package directory through its package.json
// "exports" root entry, then its "main" field, then the index files.
func (r *NodeResolver) loadAsDirectory(dir string) (string, bool) {
	manifest := r.readManifest(dir)

	if target, ok := exportsRoot(manifest.Exports); ok {
		p := filepath.Join(dir, filepath.FromSlash(target))
		if r.isFile(p) {
			return p, true
		}
	}

	if manifest.Main != "" {
		target := filepath.Join(dir, manifest.Main)
		if found, ok := r.loadAsFile(target); ok {
			return found, true
		}
		if found, ok := r.loadIndex(target); ok {
			return found, true
		}
	}
	return r.loadIndex(dir)
}

// loadIndex tries dir/index with each known extension.
func (r *NodeResolver) loadIndex(dir string) (string, bool) {
	for _, ext := range extensions {
		p := filepath.Join(dir, "index"+ext)
		if r.isFile(p) {
			return p, true
		}
	}
	return "", false
}

// packageManifest holds the package.json fields the lookup reads.
type packageManifest struct {
	Main    string          `json:"main"`
	Exports json.RawMessage `json:"exports"`
}

// readManifest decodes dir/package.json. Unreadable or malformed manifests
// yield an empty manifest.
func (r *NodeResolver) readManifest(dir string) packageManifest {
	var manifest packageManifest
	data, err := afero.ReadFile(r.fs, filepath.Join(dir, "package.json"))
	if err != nil {
		return manifest
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &manifest); err != nil {
		return packageManifest{}
	}
	return manifest
}

// exportConditions are tried in order. "import" comes last so ESM-only
// packages still yield an entry file to locate the package by.
var exportConditions = []string{"require", "node", "default", "import"}

// exportsRoot returns the target of the "." entry of an exports field.
// Both the string shorthand and subpath or condition objects are accepted.
func exportsRoot(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && hasSubpathKeys(obj) {
		root, ok := obj["."]
		if !ok {
			return "", false
		}
		return exportTarget(root)
	}
	return exportTarget(raw)
}

// hasSubpathKeys reports whether an exports object is keyed by subpaths
// ("." , "./feature") rather than by conditions.
func hasSubpathKeys(obj map[string]json.RawMessage) bool {
	for key := range obj {
		if strings.HasPrefix(key, ".") {
			return true
		}
	}
	return false
}

// exportTarget reduces a target (string, condition object or fallback
// array) to a relative path.
func exportTarget(raw json.RawMessage) (string, bool) {
	var target string
	if err := json.Unmarshal(raw, &target); err == nil {
		return target, strings.HasPrefix(target, "./")
	}

	var conditions map[string]json.RawMessage
	if err := json.Unmarshal(raw, &conditions); err == nil {
		for _, cond := range exportConditions {
			if next, ok := conditions[cond]; ok {
				if t, ok := exportTarget(next); ok {
					return t, true
				}
			}
		}
		return "", false
	}

	var fallbacks []json.RawMessage
	if err := json.Unmarshal(raw, &fallbacks); err == nil {
		for _, next := range fallbacks {
			if t, ok := exportTarget(next); ok {
				return t, true
			}
		}
	}
	return "", false
}

// isFile reports whether p exists and is not a directory.
func (r *NodeResolver) isFile(p string) bool {
	info, err := r.fs.Stat(p)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// real dereferences p, wrapping failures as not-found.
func (r *NodeResolver) real(p string) (string, error) {
	resolved, err := r.realpath(p)
	if err != nil {
		return "", fmt.Errorf("%w: realpath %s: %v", ErrModuleNotFound, p, err)
	}
	return resolved, nil
}
