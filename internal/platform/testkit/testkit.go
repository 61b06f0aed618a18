// Package testkit provides small test helpers shared across packages.
package testkit

import (
	"sync"
	"testing"
)

var seamMu sync.Mutex

// Swap swaps a package-level variable for the duration of a test and
// restores it afterward.
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// Serial makes a test run under a global lock, for tests that mutate shared
// package-level seams.
func Serial(t *testing.T) {
	t.Helper()
	seamMu.Lock()
	t.Cleanup(func() { seamMu.Unlock() })
}

// TempStoreDir returns a fresh temp directory for a filestore-backed test.
func TempStoreDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}
