// Package modroot finds the node_modules directory that encloses a path.
//
// Module roots are found by pattern, not by walking the filesystem, so
// WalkToRoot works for paths that do not exist and for paths written with
// either separator convention.
package modroot

import (
	"path/filepath"
	"regexp"
)

// moduleRootPattern captures everything up to and including the last
// node_modules component. The greedy prefix makes the nearest ancestor win;
// the alternation requires node_modules to be a whole component.
var moduleRootPattern = regexp.MustCompile(`(?i)^(.*[\\/]node_modules)(?:[\\/].+?$|[\\/]?$)`)

// windowsAbs matches a drive-letter absolute path such as C:\ or d:/.
var windowsAbs = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// WalkToRoot returns the nearest node_modules directory at or above
// startPath, or "" when no path component is named node_modules.
// The match is case-insensitive and accepts / and \ in the same string.
func WalkToRoot(startPath string) string {
	m := moduleRootPattern.FindStringSubmatch(absolute(startPath))
	if m == nil {
		return ""
	}
	return m[1]
}

// IsModuleRoot reports whether path itself is a node_modules directory.
func IsModuleRoot(path string) bool {
	root := WalkToRoot(path)
	return root != "" && root == absolute(path)
}

// absolute returns p in absolute form. Paths that are already absolute in
// either the POSIX or the Windows convention are left untouched except for
// native cleaning, so a backslash path keeps its backslashes on POSIX hosts.
func absolute(p string) string {
	switch {
	case filepath.IsAbs(p):
		return filepath.Clean(p)
	case len(p) > 0 && (p[0] == '/' || p[0] == '\\'):
		return p
	case windowsAbs.MatchString(p):
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
