package bundler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a configuration document encoding.
type Format string

const (
	// FormatJSON renders indented JSON. Input may be JSONC.
	FormatJSON Format = "json"

	// FormatYAML renders YAML.
	FormatYAML Format = "yaml"
)

// ParseFormat converts a user-supplied format name into a Format.
// "yml" is accepted as an alias for "yaml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported format %q (expected json or yaml)", s)
}

// Marshal renders cfg in the given format, ending with a newline.
//
// JSON output uses 2-space indentation and leaves <, > and & unescaped, so
// regex sources such as "(?<!node_modules.*)" stay readable.
func Marshal(cfg Config, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]interface{}(cfg)); err != nil {
			return nil, fmt.Errorf("failed to serialize configuration as YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to serialize configuration as YAML: %w", err)
		}
		return buf.Bytes(), nil

	case FormatJSON, "":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		// Encode appends the trailing newline.
		if err := enc.Encode(map[string]interface{}(cfg)); err != nil {
			return nil, fmt.Errorf("failed to serialize configuration as JSON: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// WriteConfig writes rendered configuration bytes to outputPath, creating
// parent directories if they don't exist.
func WriteConfig(outputPath string, data []byte) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration to %s: %w", outputPath, err)
	}

	return nil
}
