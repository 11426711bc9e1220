// Package bundler reads, rewrites and renders webpack configuration
// documents.
//
// A webpack configuration is handled as a generic map so that every key the
// tool does not touch survives a round trip unchanged. Only three fields are
// ever written:
//   - resolve.modules
//   - resolveLoader.modules
//   - optimization.splitChunks.cacheGroups.framework.test
//
// Documents are read as JSONC (JSON with comments, via
// github.com/tidwall/jsonc) or YAML, and rendered as indented JSON or YAML.
package bundler
