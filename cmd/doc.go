// Package cmd implements the command-line interface of Dorea. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the Dorea server
//   - kv: Client commands (get, set, edit, info, ...) and the perf benchmark
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set with an environment variable (DOREA_<FLAG>, e.g.
// DOREA_DATA_DIR), in a .env / .env.local file or in the file given with
// --config. See dorea -help for a list of all commands.
package cmd
