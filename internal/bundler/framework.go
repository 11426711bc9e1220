package bundler

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mmr-tortoise/pnpmpath/internal/logging"
	"github.com/mmr-tortoise/pnpmpath/internal/noderesolve"
)

// resourcePrefixesKey is the serialized form of a PrefixTest.
const resourcePrefixesKey = "resourcePrefixes"

// frameworkGroupPattern pulls the package alternation out of a cache group
// regex such as
//
//	(?<!node_modules.*)[\\/]node_modules[\\/](react|react-dom|scheduler)[\\/]
//
// once brackets and backslashes have been removed.
var frameworkGroupPattern = regexp.MustCompile(`/\(([^)]+)\)/$`)

// regexSyntax is what gets stripped from a pattern before matching.
var regexSyntax = strings.NewReplacer("[", "", `\`, "", "]", "")

// Module is the part of a webpack module a cache group test looks at.
type Module struct {
	// Resource is the absolute path of the module's file.
	Resource string `json:"resource,omitempty" yaml:"resource,omitempty"`
}

// ModuleTest decides whether a module belongs to a cache group.
type ModuleTest interface {
	Match(m Module) bool
}

// PrefixTest matches modules whose resource lies under one of Prefixes.
// Each prefix ends with a path separator, so "react" never matches
// "react-dom".
type PrefixTest struct {
	Prefixes []string
}

// Match reports whether m.Resource starts with any prefix.
func (p *PrefixTest) Match(m Module) bool {
	if m.Resource == "" {
		return false
	}
	for _, prefix := range p.Prefixes {
		if strings.HasPrefix(m.Resource, prefix) {
			return true
		}
	}
	return false
}

func (p PrefixTest) serialized() map[string][]string {
	prefixes := p.Prefixes
	if prefixes == nil {
		prefixes = []string{}
	}
	return map[string][]string{resourcePrefixesKey: prefixes}
}

// MarshalJSON renders the test as {"resourcePrefixes": [...]}.
func (p PrefixTest) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.serialized())
}

// MarshalYAML renders the test as a resourcePrefixes mapping.
func (p PrefixTest) MarshalYAML() (interface{}, error) {
	return p.serialized(), nil
}

// FrameworkPackages extracts package names from a JavaScript regex literal
// ("/source/flags"). It is a best-effort parse: anything that does not end
// in a "/(a|b|c)/" group after brackets and backslashes are removed yields
// false.
func FrameworkPackages(literal string) ([]string, bool) {
	stripped := regexSyntax.Replace(literal)
	if len(stripped) < 2 {
		return nil, false
	}
	// Drop the literal's opening slash and its last character.
	body := stripped[1 : len(stripped)-1]

	m := frameworkGroupPattern.FindStringSubmatch(body)
	if m == nil || m[1] == "" {
		return nil, false
	}
	return strings.Split(m[1], "|"), true
}

// regexLiteral returns test as a "/source/flags" literal. Strings count only
// when they look like one; a *regexp.Regexp is wrapped in slashes.
func regexLiteral(test interface{}) (string, bool) {
	switch t := test.(type) {
	case *regexp.Regexp:
		if t == nil {
			return "", false
		}
		return "/" + t.String() + "/", true
	case string:
		if strings.HasPrefix(t, "/") && strings.LastIndex(t, "/") > 0 {
			return t, true
		}
	}
	return "", false
}

// PatchFrameworkCache makes the framework cache group work with pnpm's
// symlinked layout. The group's regex expects framework packages directly
// under node_modules, which never holds for packages living in the virtual
// store, so the regex is replaced with a PrefixTest over each framework
// package's real directory.
//
// Package names come from the regex itself and are resolved as
// "<name>/package.json" from siteDir using r. Names that fail to resolve are
// dropped. Reports whether the document was changed; documents without a
// framework group, without a regex test or whose regex has no package
// group are left alone.
func PatchFrameworkCache(cfg Config, siteDir string, r noderesolve.Resolver) bool {
	logger := logging.Get("bundler")

	group, ok := cfg.frameworkGroup()
	if !ok {
		logger.Debug().Msg("no framework cache group, skipping patch")
		return false
	}
	literal, ok := regexLiteral(group["test"])
	if !ok {
		logger.Debug().Msg("framework cache group test is not a regex, skipping patch")
		return false
	}

	names, ok := FrameworkPackages(literal)
	if !ok {
		// Replacing a regex we cannot read would disable the group.
		logger.Debug().Str("test", literal).Msg("no package group in framework test, skipping patch")
		return false
	}

	test := &PrefixTest{Prefixes: ResolvePackageDirs(names, siteDir, r)}
	group["test"] = test

	logger.Debug().Strs("prefixes", test.Prefixes).Msg("patched framework cache group")
	return true
}

// ResolvePackageDirs returns the directory of each package in names, with a
// trailing separator, in input order. Unresolvable names are skipped.
func ResolvePackageDirs(names []string, siteDir string, r noderesolve.Resolver) []string {
	logger := logging.Get("bundler")

	dirs := make([]string, 0, len(names))
	for _, name := range names {
		manifest, err := r.Resolve(name+"/package.json", []string{siteDir})
		if err != nil {
			logger.Debug().Err(err).Str("package", name).Msg("framework package not resolvable")
			continue
		}
		dirs = append(dirs, filepath.Dir(manifest)+string(filepath.Separator))
	}
	return dirs
}
