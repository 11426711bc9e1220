// Package config loads resolution options from defaults, an options file,
// the environment and command-line overrides, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mmr-tortoise/pnpmpath/internal/logging"
	"github.com/mmr-tortoise/pnpmpath/internal/model"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "PNPMPATH_"

// OptionsFileNames are looked up, in order, in the program directory.
var OptionsFileNames = []string{"pnpmpath.yaml", "pnpmpath.yml", "pnpmpath.toml"}

// keyAliases maps the camelCase option names used by the build tool's
// plugin options onto the loader's keys.
var keyAliases = map[string]string{
	"projectPath": "project_path",
	"hostPackage": "host_package",
}

// LoadParams tells Load where to look.
type LoadParams struct {
	// ProgramDir is searched for an options file when OptionsFile is empty.
	ProgramDir string

	// OptionsFile is an explicit options file. It must exist.
	OptionsFile string

	// Overrides are applied last, keyed like the options file
	// (strict, include, project_path, host_package).
	Overrides map[string]interface{}
}

// Load merges defaults, the options file, PNPMPATH_* environment variables
// and p.Overrides into validated ResolutionOptions.
//
// Errors are CLIErrors with ExitInvalidOptions.
func Load(p LoadParams) (model.ResolutionOptions, error) {
	logger := logging.Get("config")
	k := koanf.New(".")

	// 1. Defaults
	defaults := model.DefaultResolutionOptions()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"strict":       defaults.Strict,
		"include":      defaults.Include,
		"host_package": defaults.HostPackage,
	}, "."), nil); err != nil {
		return model.ResolutionOptions{}, invalid("failed to load defaults", err)
	}

	// 2. Options file
	path, err := optionsFile(p)
	if err != nil {
		return model.ResolutionOptions{}, err
	}
	if path != "" {
		if err := loadFile(k, path); err != nil {
			return model.ResolutionOptions{}, invalid(fmt.Sprintf("failed to load options from %s", path), err)
		}
		logger.Debug().Str("path", path).Msg("loaded options file")
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return model.ResolutionOptions{}, invalid("failed to load environment", err)
	}

	// 4. Overrides
	if len(p.Overrides) > 0 {
		if err := k.Load(confmap.Provider(p.Overrides, "."), nil); err != nil {
			return model.ResolutionOptions{}, invalid("failed to apply overrides", err)
		}
	}

	var opts model.ResolutionOptions
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &opts,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &opts, unmarshalConf); err != nil {
		return model.ResolutionOptions{}, invalid("failed to decode options", err)
	}

	opts.Include = trimEntries(opts.Include)
	if err := opts.Validate(); err != nil {
		return model.ResolutionOptions{}, invalid("invalid options", err)
	}

	logger.Debug().
		Bool("strict", opts.Strict).
		Strs("include", opts.Include).
		Str("hostPackage", opts.HostPackage).
		Msg("options loaded")
	return opts, nil
}

// optionsFile returns the options file to read, or "" when there is none.
func optionsFile(p LoadParams) (string, error) {
	if p.OptionsFile != "" {
		if _, err := os.Stat(p.OptionsFile); err != nil {
			return "", invalid(fmt.Sprintf("options file not found: %s", p.OptionsFile), err)
		}
		return p.OptionsFile, nil
	}
	if p.ProgramDir == "" {
		return "", nil
	}
	for _, name := range OptionsFileNames {
		path := filepath.Join(p.ProgramDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// loadFile reads path into a scratch instance, renames aliased keys and
// merges the result into k.
func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser = yaml.Parser()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		parser = toml.Parser()
	}

	fk := koanf.New(".")
	if err := fk.Load(file.Provider(path), parser); err != nil {
		return err
	}

	values := fk.Raw()
	for alias, key := range keyAliases {
		if v, ok := values[alias]; ok {
			if _, set := values[key]; !set {
				values[key] = v
			}
			delete(values, alias)
		}
	}
	return k.Load(confmap.Provider(values, "."), nil)
}

// trimEntries drops surrounding whitespace from comma-separated values.
func trimEntries(entries []string) []string {
	if entries == nil {
		return []string{}
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSpace(e))
	}
	return out
}

func invalid(msg string, err error) error {
	return model.WrapCLIError(model.ExitInvalidOptions, msg, err)
}
