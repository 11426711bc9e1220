// Package noderesolve resolves module specifiers the way Node's CommonJS
// loader does for require.resolve(specifier, { paths }).
//
// Only the lookup behaviour the path resolution needs is implemented:
// node_modules hierarchy walking, "main" from package.json, index files,
// and the .js/.json/.node extension probe. Package "exports" maps and ES
// module conditions are not consulted.
//
// Callers depend on the Resolver interface so tests can substitute a fake
// without building a node_modules tree on disk.
package noderesolve
