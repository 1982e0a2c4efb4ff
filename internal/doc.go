// Package internal contains the core implementation packages for strata.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - conftree: the indentation-based site config language, with parent
//     inheritance and deep merge
//   - types: field values, field schemas and content records
//   - query: the filter expression parser and evaluator
//   - store: the content store with its identifier indexes
//   - modules: content modules and their dependency-ordered loading
//   - modules/builtin: the pages, static, data and listing modules
//   - scanner: file system scanning with exclude patterns and checksums
//   - build: build generations, output emission and build metrics
//   - config: command settings from flags, environment and settings file
//   - watcher: file system monitoring with debouncing
//   - errors: the typed errors every package returns
//   - logging: structured logging on log/slog
//   - version: build information for the binary
//
// # Data Flow
//
// One build generation runs in a fixed order:
//
//   - build parses the site config through conftree
//   - modules resolves the module graph and loads each module into a
//     fresh store, dependencies first
//   - listing records are expanded with query over the loaded store
//   - build writes every record and the sitemap to the output directory
//
// A generation shares nothing with the previous one. The watch command runs
// a new generation for each batch of file changes.
package internal
