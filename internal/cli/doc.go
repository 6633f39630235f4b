// Package cli implements the command-line interface for civicscan.
//
// The cli package provides the Cobra-based root command, which loads the
// configuration, wires the browser, hash store, site adapters, structurer and
// output sink together, runs one pipeline pass and prints a run summary as
// text or JSON. The exit code reports whether any source changed.
package cli
