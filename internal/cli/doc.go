// Package cli turns command-line arguments into a validated app.Config and
// reports usage problems as ExitError values carrying the process exit code.
package cli
