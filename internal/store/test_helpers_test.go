package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/flexi/internal/ir"
)

// createTestStore creates a new store in a temp directory.
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

// createTestRun creates a queued run record with minimal fields.
func createTestRun(id, ability string, seq int64) ir.RunRecord {
	return ir.RunRecord{
		RunID:   id,
		Ability: ability,
		Payload: ir.IRObject{},
		Status:  ir.RunQueued,
		Seq:     seq,
	}
}
