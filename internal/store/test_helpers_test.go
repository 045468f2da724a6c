package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tsq/internal/engine"
	"github.com/roach88/tsq/internal/testutil"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestObject coerces fields against the shared test schema.
func createTestObject(t *testing.T, typeName, id string, fields map[string]any) *engine.Object {
	t.Helper()
	emb, err := testutil.PeopleSchema().CoerceObject(typeName, fields)
	if err != nil {
		t.Fatalf("CoerceObject(%s) failed: %v", typeName, err)
	}
	return &engine.Object{Type: typeName, ID: id, Fields: emb}
}
