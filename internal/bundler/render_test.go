package bundler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "JSON": FormatJSON, "yaml": FormatYAML, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("toml")
	assert.Error(t, err)
}

func TestMarshal_JSON(t *testing.T) {
	cfg := frameworkConfig(&PrefixTest{Prefixes: []string{"/store/react/"}})
	cfg["note"] = "(?<!node_modules.*)"

	data, err := Marshal(cfg, FormatJSON)
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, `"resourcePrefixes": [`)
	assert.Contains(t, out, `"(?<!node_modules.*)"`)
	assert.Contains(t, out, "\n  \"note\"")
}

func TestMarshal_JSONEmptyPrefixes(t *testing.T) {
	data, err := Marshal(frameworkConfig(&PrefixTest{}), FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"resourcePrefixes": []`)
}

func TestMarshal_YAML(t *testing.T) {
	cfg := frameworkConfig(&PrefixTest{Prefixes: []string{"/store/react/"}})
	cfg["resolve"] = map[string]interface{}{"modules": []string{"node_modules", "/site/node_modules"}}

	data, err := Marshal(cfg, FormatYAML)
	require.NoError(t, err)

	var back map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &back))

	test := back["optimization"].(map[string]interface{})["splitChunks"].(map[string]interface{})["cacheGroups"].(map[string]interface{})["framework"].(map[string]interface{})["test"]
	assert.Equal(t, map[string]interface{}{"resourcePrefixes": []interface{}{"/store/react/"}}, test)

	reparsed, err := ParseYAMLConfig(data)
	require.NoError(t, err)
	modules, ok := reparsed.Modules("resolve")
	require.True(t, ok)
	assert.Equal(t, []string{"node_modules", "/site/node_modules"}, modules)
}

func TestMarshal_UnknownFormat(t *testing.T) {
	_, err := Marshal(Config{}, Format("xml"))
	assert.Error(t, err)
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "webpack.json")
	require.NoError(t, WriteConfig(path, []byte("{}\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}
