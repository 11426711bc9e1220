package model

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultResolutionOptions verifies the defaults a host gets when it
// passes no plugin options at all.
func TestDefaultResolutionOptions(t *testing.T) {
	opts := DefaultResolutionOptions()
	assert.True(t, opts.Strict, "strict mode is on by default")
	assert.Empty(t, opts.Include)
	assert.NotNil(t, opts.Include, "include should be an empty list, not nil")
	assert.Empty(t, opts.ProjectPath)
	assert.Equal(t, DefaultHostPackage, opts.HostPackage)
}

// TestResolutionOptions_Validate checks the repairable and fatal option cases.
func TestResolutionOptions_Validate(t *testing.T) {
	tests := []struct {
		name     string
		opts     ResolutionOptions
		wantHost string
		hasError bool
	}{
		{"empty host package defaults", ResolutionOptions{}, DefaultHostPackage, false},
		{"custom host package kept", ResolutionOptions{HostPackage: "next"}, "next", false},
		{"padded host package rejected", ResolutionOptions{HostPackage: " gatsby"}, "", true},
		{"blank include entry rejected", ResolutionOptions{Include: []string{"react", "  "}}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, tt.opts.HostPackage)
		})
	}
}

// TestResolutionSet_Add verifies order preservation and de-duplication
// by normalized path.
func TestResolutionSet_Add(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "proj")
	nm := filepath.Join(root, "node_modules")

	var s ResolutionSet
	assert.True(t, s.Add(BareModulesDir))
	assert.True(t, s.Add(nm))
	assert.False(t, s.Add(nm+string(filepath.Separator)), "trailing separator is the same directory")
	assert.False(t, s.Add(filepath.Join(root, "x", "..", "node_modules")), "dot-dot spelling is the same directory")
	assert.False(t, s.Add(""), "empty entries are ignored")
	assert.True(t, s.Add(filepath.Join(root, "other")))

	assert.Equal(t, []string{BareModulesDir, nm, filepath.Join(root, "other")}, s.Paths())
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains(nm))
	assert.False(t, s.Contains(filepath.Join(root, "missing")))
}

// TestResolutionSet_BarewordIdentity makes sure the bareword entry is never
// confused with an absolute node_modules directory.
func TestResolutionSet_BarewordIdentity(t *testing.T) {
	abs, err := filepath.Abs(BareModulesDir)
	require.NoError(t, err)

	s := NewResolutionSet(BareModulesDir, abs, BareModulesDir)
	assert.Equal(t, []string{BareModulesDir, abs}, s.Paths())
}

// TestResolutionSet_PathsIsCopy verifies callers cannot mutate the set
// through the returned slice.
func TestResolutionSet_PathsIsCopy(t *testing.T) {
	s := NewResolutionSet("a", "b")
	paths := s.Paths()
	paths[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, s.Paths())
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitConfigInvalid, "webpack config is not valid JSON")
		assert.Equal(t, ExitConfigInvalid, err.Code)
		assert.Equal(t, "webpack config is not valid JSON", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		err := WrapCLIError(ExitHostPackageMissing, "cannot resolve gatsby", ErrHostPackageMissing)
		assert.Equal(t, ExitHostPackageMissing, err.Code)
		assert.Contains(t, err.Error(), "host package is not installed")
		assert.Equal(t, ErrHostPackageMissing, err.Unwrap())
	})

	t.Run("errors.Is chain", func(t *testing.T) {
		err := WrapCLIError(ExitHostPackageMissing, "cannot resolve gatsby", ErrHostPackageMissing)
		assert.True(t, errors.Is(err, ErrHostPackageMissing))

		var cliErr *CLIError
		require.True(t, errors.As(error(err), &cliErr))
		assert.Equal(t, ExitHostPackageMissing, cliErr.Code)
	})
}
