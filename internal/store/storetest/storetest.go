// Package storetest provides an in-memory run store for tests.
package storetest

import (
	"testing"

	"link-level-analyzer/internal/store"
)

// New opens an in-memory store that is closed when the test ends.
func New(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("storetest.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
