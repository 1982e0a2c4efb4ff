// Package cmd provides the command-line interface for strata.
//
// # Available Commands
//
//   - build: run one build generation and write the output directory
//   - query: evaluate a filter expression against the loaded content
//   - modules: show the resolved module load order
//   - config: print the merged site config tree
//   - watch: rebuild whenever the site changes
//   - version: print build information
//
// # Command Examples
//
//	strata build --output dist --clean
//	strata query '(pages:: tags in go) // (data:: langs in en)' --format json
//	strata query --interactive
//	strata modules
//	strata config --settings
//	strata watch --debounce 500ms
//
// # Configuration Integration
//
// Settings are resolved in order of precedence:
//
//  1. Command-line flags
//  2. Environment variables (STRATA_OUTPUT, STRATA_LOG_LEVEL, ...)
//  3. Settings file (.strata.yml, or --config)
//  4. Default values
//
// Errors are printed with their kind and location and the process exits
// with status 1.
package cmd
