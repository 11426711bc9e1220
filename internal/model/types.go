// Package model defines the domain types for the pnpmpath CLI.
//
// These types are shared by the resolution core (internal/resolution),
// the host hook (internal/plugin) and the CLI layer (internal/cli).
package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// BareModulesDir is the literal first entry of every ResolutionSet.
// Keeping the bareword (instead of an absolute path) preserves the
// bundler's own hierarchical node_modules lookup.
const BareModulesDir = "node_modules"

// DefaultHostPackage is the host framework package that must be installed
// directly in the project's node_modules when strict mode is on.
const DefaultHostPackage = "gatsby"

// ResolutionOptions are the user-facing options of a resolution run.
// They correspond to the plugin options a host build tool passes in.
type ResolutionOptions struct {
	// Strict restricts package lookups to packages linked directly into the
	// project's node_modules. It also makes a missing host package fatal.
	Strict bool `json:"strict" yaml:"strict" koanf:"strict"`

	// Include lists extra package names or directories to add to the
	// resolution set, in order. Directories win over package names.
	Include []string `json:"include" yaml:"include" koanf:"include"`

	// ProjectPath overrides the project root reported by the host.
	ProjectPath string `json:"projectPath,omitempty" yaml:"projectPath,omitempty" koanf:"project_path"`

	// HostPackage is the host framework package name (default "gatsby").
	HostPackage string `json:"hostPackage,omitempty" yaml:"hostPackage,omitempty" koanf:"host_package"`
}

// DefaultResolutionOptions returns the options used when the host passes none.
func DefaultResolutionOptions() ResolutionOptions {
	return ResolutionOptions{
		Strict:      true,
		Include:     []string{},
		HostPackage: DefaultHostPackage,
	}
}

// Validate checks option values that cannot be repaired silently.
// An empty HostPackage is filled with DefaultHostPackage.
func (o *ResolutionOptions) Validate() error {
	if o.HostPackage == "" {
		o.HostPackage = DefaultHostPackage
	}
	if strings.TrimSpace(o.HostPackage) != o.HostPackage {
		return fmt.Errorf("invalid host package %q: must not contain surrounding whitespace", o.HostPackage)
	}
	for i, entry := range o.Include {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("include[%d]: entry must not be empty", i)
		}
	}
	return nil
}

// ResolutionSet is an ordered sequence of unique module-search directories.
//
// Entries are compared after normalization (filepath.Clean), so the same
// directory spelled two ways is only kept once, at its first position.
// The zero value is ready to use.
type ResolutionSet struct {
	entries []string
	seen    map[string]struct{}
}

// NewResolutionSet returns a set holding the given entries, de-duplicated.
func NewResolutionSet(entries ...string) ResolutionSet {
	var s ResolutionSet
	for _, e := range entries {
		s.Add(e)
	}
	return s
}

// Add appends path unless an equal path is already present.
// Empty strings are ignored. Reports whether the path was appended.
func (s *ResolutionSet) Add(path string) bool {
	if path == "" {
		return false
	}
	// Lazily allocated so the zero value works.
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	// The original spelling is kept in entries; only the key is normalized
	// so output matches what the caller passed in.
	key := NormalizePath(path)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.entries = append(s.entries, path)
	return true
}

// Contains reports whether an equal path is present.
func (s ResolutionSet) Contains(path string) bool {
	_, ok := s.seen[NormalizePath(path)]
	return ok
}

// Len returns the number of entries.
func (s ResolutionSet) Len() int {
	return len(s.entries)
}

// Paths returns a copy of the entries in order.
// A copy is returned so callers can hand the slice to a config document
// without aliasing the set.
func (s ResolutionSet) Paths() []string {
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// NormalizePath returns the comparison key used by ResolutionSet.
// Relative entries (such as the bareword "node_modules") are only cleaned,
// never made absolute, so they keep their own identity.
func NormalizePath(path string) string {
	return filepath.Clean(path)
}

// ErrHostPackageMissing is returned when the host framework package cannot
// be resolved from the project's node_modules while strict mode is on.
var ErrHostPackageMissing = errors.New("host package is not installed in the project's node_modules")

// ExitCode defines standard CLI exit codes.
// These codes allow scripts and CI systems to programmatically determine
// the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigInvalid indicates the bundler configuration document could
	// not be read, parsed, or failed validation after rewriting.
	ExitConfigInvalid ExitCode = 2

	// ExitHostPackageMissing indicates the fatal strict-mode condition:
	// the host package is not linked into the project's node_modules.
	ExitHostPackageMissing ExitCode = 3

	// ExitInvalidOptions indicates the resolution options could not be
	// loaded or are invalid.
	ExitInvalidOptions ExitCode = 4
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
