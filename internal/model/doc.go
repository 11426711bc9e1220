// Package model defines the domain types and value objects for the
// pnpmpath CLI.
//
// This package contains pure data structures with no external dependencies.
// All values (ResolutionOptions, ResolutionSet) are built fresh for each
// resolution run and discarded afterwards; nothing is persisted.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
