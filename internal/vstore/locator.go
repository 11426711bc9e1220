// Package vstore locates pnpm's virtual store directory for a project.
//
// pnpm records the virtual store location in node_modules/.modules.yaml
// under the virtualStoreDir key. Only that single line is read; the rest
// of the manifest is never parsed, so a manifest that is not valid YAML
// still yields a usable answer.
package vstore

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

const (
	// ManifestFile is pnpm's modules manifest, relative to node_modules.
	ManifestFile = ".modules.yaml"

	// DefaultStoreDir is the virtual store directory used when the
	// manifest is missing or does not name one.
	DefaultStoreDir = ".pnpm"
)

// virtualStoreDirLine matches the virtualStoreDir key on its own line.
// The key match is case-sensitive; leading whitespace is allowed so the
// key is also found when the manifest is indented.
var virtualStoreDirLine = regexp.MustCompile(`(?m)^\s*virtualStoreDir:\s*(.+)\s*$`)

// Locator finds the virtual store directory through an afero filesystem.
type Locator struct {
	fs afero.Fs
}

// New returns a Locator reading manifests from fs.
func New(fs afero.Fs) *Locator {
	return &Locator{fs: fs}
}

// NewOS returns a Locator reading manifests from the real filesystem.
func NewOS() *Locator {
	return New(afero.NewOsFs())
}

// Locate returns the virtual store directory for the node_modules directory
// moduleRootDir. Relative manifest values are resolved against
// moduleRootDir. Any read problem falls back to <moduleRootDir>/.pnpm.
func (l *Locator) Locate(moduleRootDir string) string {
	fallback := filepath.Join(moduleRootDir, DefaultStoreDir)

	data, err := afero.ReadFile(l.fs, filepath.Join(moduleRootDir, ManifestFile))
	if err != nil {
		return fallback
	}

	value, ok := ParseVirtualStoreDir(string(data))
	if !ok {
		return fallback
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(moduleRootDir, value)
}

// NodeModulesDir returns the node_modules directory inside the virtual
// store. pnpm hoists every package of the store into it, which makes it
// the search root for transitive dependencies.
func (l *Locator) NodeModulesDir(moduleRootDir string) string {
	return filepath.Join(l.Locate(moduleRootDir), "node_modules")
}

// ParseVirtualStoreDir extracts the virtualStoreDir value from manifest
// text. One layer of double quotes, then one layer of single quotes, is
// stripped. It reports false when the key is absent or the value is empty.
func ParseVirtualStoreDir(manifest string) (string, bool) {
	m := virtualStoreDirLine.FindStringSubmatch(manifest)
	if m == nil {
		return "", false
	}

	value := strings.TrimSpace(m[1])
	value = unquote(value, '"')
	value = unquote(value, '\'')
	if value == "" {
		return "", false
	}
	return value, true
}

// unquote strips a matching pair of q from both ends of s.
func unquote(s string, q byte) string {
	if len(s) >= 2 && s[0] == q && s[len(s)-1] == q {
		return s[1 : len(s)-1]
	}
	return s
}
