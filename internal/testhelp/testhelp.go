// Package testhelp holds small test-only fixtures shared across the core's
// package tests.
package testhelp

import "testing"

// FatalOnErr fails the test immediately if err is non-nil, tagging the
// failure with msg.
func FatalOnErr(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}
