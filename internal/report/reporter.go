// Package report defines the reporter a resolution run signals problems to.
//
// A host build tool provides warn and panic channels. Warn is informational;
// Panic is fatal and callers must stop mutating configuration once it fires.
package report

import (
	"sync"

	"github.com/rs/zerolog"
)

// Reporter receives warnings and fatal conditions.
type Reporter interface {
	Warn(message string)
	Panic(message string)
}

// LogReporter writes reports to a zerolog logger and remembers what it saw.
// It is safe for concurrent use.
type LogReporter struct {
	logger zerolog.Logger

	mu       sync.Mutex
	warnings []string
	panics   []string
}

// NewLogReporter returns a LogReporter writing to logger.
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Warn logs message at warn level.
func (r *LogReporter) Warn(message string) {
	r.mu.Lock()
	r.warnings = append(r.warnings, message)
	r.mu.Unlock()

	r.logger.Warn().Msg(message)
}

// Panic logs message at error level and records the fatal condition.
// It does not exit the process; the caller decides how to stop.
func (r *LogReporter) Panic(message string) {
	r.mu.Lock()
	r.panics = append(r.panics, message)
	r.mu.Unlock()

	r.logger.Error().Bool("fatal", true).Msg(message)
}

// Warnings returns the warning messages reported so far.
func (r *LogReporter) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// Panicked reports whether Panic was called.
func (r *LogReporter) Panicked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.panics) > 0
}
