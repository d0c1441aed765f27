package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a fresh budget file in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// msg builds a message with the given timestamp suffix. Suffixes sort in
// the same order as the timestamps they produce.
func msg(ts, dataset, row, column string, value any) Message {
	return Message{
		Timestamp: "2024-01-01T00:00:00.000Z-" + ts + "-0000000000000001",
		Dataset:   dataset,
		Row:       row,
		Column:    column,
		Value:     value,
	}
}
