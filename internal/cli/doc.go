// Package cli implements the maintenance subcommands of the readowl binary.
// Each command parses its own flag set and runs against the configured
// database or the local slug and user agent helpers.
package cli
