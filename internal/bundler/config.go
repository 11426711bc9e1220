package bundler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/pnpmpath/internal/model"
)

// Config is a webpack configuration document. Values are whatever the
// decoder produced (maps, slices, strings, numbers) plus the values this
// package writes: []string module lists and *PrefixTest.
type Config map[string]interface{}

// ErrNotAnObject is returned when a document's top level is not an object.
var ErrNotAnObject = errors.New("configuration document must be an object")

// LoadConfig reads a configuration document from path. Files ending in
// .yaml or .yml are decoded as YAML; everything else as JSONC.
//
// Returns a CLIError with ExitConfigInvalid if the file does not exist.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigInvalid,
				fmt.Sprintf("configuration file not found: %s", path),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	format := FormatFromPath(path)
	cfg, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// ReadConfig decodes a document of the given format from r.
func ReadConfig(r io.Reader, format Format) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return Decode(data, format)
}

// Decode parses data in the given format.
func Decode(data []byte, format Format) (Config, error) {
	if format == FormatYAML {
		return ParseYAMLConfig(data)
	}
	return ParseConfig(data)
}

// ParseConfig strips JSONC comments and trailing commas from data and
// decodes it into a Config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if cfg == nil {
		return nil, ErrNotAnObject
	}
	return cfg, nil
}

// ParseYAMLConfig decodes a YAML document into a Config.
func ParseYAMLConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if cfg == nil {
		return nil, ErrNotAnObject
	}
	return cfg, nil
}

// SetModules points both resolve.modules and resolveLoader.modules at the
// entries of set. Other keys of resolve and resolveLoader are kept; either
// object is created when missing.
func (c Config) SetModules(set model.ResolutionSet) {
	modules := set.Paths()
	c.object("resolve")["modules"] = modules
	c.object("resolveLoader")["modules"] = modules
}

// Modules returns the list stored under key ("resolve" or "resolveLoader").
func (c Config) Modules(key string) ([]string, bool) {
	obj, ok := asObject(c[key])
	if !ok {
		return nil, false
	}
	return stringList(obj["modules"])
}

// FrameworkTest returns the framework cache group's test once it has been
// patched. A document that was patched, rendered and read back is
// recognised by its resourcePrefixes object.
func (c Config) FrameworkTest() (ModuleTest, bool) {
	group, ok := c.frameworkGroup()
	if !ok {
		return nil, false
	}

	switch test := group["test"].(type) {
	case *PrefixTest:
		return test, true
	case PrefixTest:
		return &test, true
	case map[string]interface{}:
		prefixes, ok := stringList(test[resourcePrefixesKey])
		if !ok {
			return nil, false
		}
		return &PrefixTest{Prefixes: prefixes}, true
	}
	return nil, false
}

// frameworkGroup walks optimization.splitChunks.cacheGroups.framework.
// Any missing or non-object segment ends the walk.
func (c Config) frameworkGroup() (map[string]interface{}, bool) {
	var node interface{} = map[string]interface{}(c)
	for _, key := range []string{"optimization", "splitChunks", "cacheGroups", "framework"} {
		obj, ok := asObject(node)
		if !ok {
			return nil, false
		}
		node, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return asObject(node)
}

// object returns c[key] as an object, replacing any non-object value.
func (c Config) object(key string) map[string]interface{} {
	if obj, ok := asObject(c[key]); ok {
		c[key] = obj
		return obj
	}
	obj := make(map[string]interface{})
	c[key] = obj
	return obj
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	switch obj := v.(type) {
	case map[string]interface{}:
		return obj, obj != nil
	case Config:
		return map[string]interface{}(obj), obj != nil
	}
	return nil, false
}

// stringList accepts both decoded ([]interface{}) and written ([]string)
// lists. Non-string elements make the list invalid.
func stringList(v interface{}) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// FormatFromPath picks a document format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}
