package bundler

import (
	"fmt"
	"slices"

	"github.com/mmr-tortoise/pnpmpath/internal/model"
)

// ValidationError represents one problem in a rewritten configuration.
type ValidationError struct {
	// Field is the dotted path of the offending field (e.g. "resolve.modules").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation error: %s: %s", e.Field, e.Message)
}

// Validate checks a rewritten configuration. It returns a list of
// validation errors (empty list = valid configuration).
//
// Checks performed:
//   - resolve.modules and resolveLoader.modules exist and are string lists
//   - each list starts with the bareword node_modules and has no duplicates
//   - both lists are identical
func Validate(cfg Config) []ValidationError {
	var errs []ValidationError

	lists := make(map[string][]string, 2)
	for _, key := range []string{"resolve", "resolveLoader"} {
		field := key + ".modules"
		modules, ok := cfg.Modules(key)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "must be a list of directories",
			})
			continue
		}
		lists[key] = modules

		if len(modules) == 0 || modules[0] != model.BareModulesDir {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("first entry must be %q", model.BareModulesDir),
			})
		}

		seen := make(map[string]struct{}, len(modules))
		for i, m := range modules {
			norm := model.NormalizePath(m)
			if _, dup := seen[norm]; dup {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", field, i),
					Message: fmt.Sprintf("duplicate entry %q", m),
				})
			}
			seen[norm] = struct{}{}
		}
	}

	resolveModules, ok1 := lists["resolve"]
	loaderModules, ok2 := lists["resolveLoader"]
	if ok1 && ok2 && !slices.Equal(resolveModules, loaderModules) {
		errs = append(errs, ValidationError{
			Field:   "resolveLoader.modules",
			Message: "must match resolve.modules",
		})
	}

	return errs
}
