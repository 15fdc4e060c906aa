// Package app loads configuration and wires application dependencies for
// the CLI.
//
// It builds the concrete stores, the relay client, the logging backend and
// the high-level services from a Config, exposing them via App.
package app
