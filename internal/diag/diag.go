// Package diag centralizes the core's two diagnostic surfaces: fatal
// invariant-violation aborts and verbose-gated trace lines.
package diag

import (
	"fmt"
	"log"
	"os"
)

// Verbose gates non-fatal diagnostic output across every core package. It is
// sampled at call time, not cached, so tests can flip it per-case.
var Verbose bool

// Fatalf aborts the process with a diagnostic. Invariant violations
// (corrupt allocator header, malformed chain, use of a destroyed table)
// indicate memory corruption and bypass normal error propagation; they are
// not recoverable and must not be returned as an error value.
func Fatalf(format string, args ...any) {
	log.Fatalf(format, args...)
}

// Tracef writes a verbose-gated trace line to stderr.
func Tracef(format string, args ...any) {
	if Verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
