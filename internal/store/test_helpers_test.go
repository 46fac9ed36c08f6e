package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/loopsched/internal/sched"
)

// createTestStore creates a new store in a temporary directory.
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

// createTestRun creates a run with minimal required fields.
func createTestRun(id string, seq int64) Run {
	return Run{
		ID:      id,
		Seq:     seq,
		Command: "plan",
		Domain:  "int32",
		Op:      "for",
		Request: "for int32 [0, 9] step 1 kind=greedy executors=3",
	}
}

// createTestMetadata creates a loop description for a balanced loop.
func createTestMetadata(loc string, trip uint64) sched.Metadata {
	return sched.Metadata{
		Op:        sched.OpForStatic,
		Loc:       sched.Location(loc),
		Kind:      sched.Balanced,
		TripCount: trip,
		Chunk:     (trip + 3) / 4,
		Executors: 4,
	}
}

// fixedIDs returns the same run id every time.
type fixedIDs string

func (f fixedIDs) Generate() string { return string(f) }
