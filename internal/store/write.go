package store

import (
	"context"
	"fmt"

	"github.com/roach88/loopsched/internal/sched"
)

// Run is one recorded CLI invocation.
type Run struct {
	ID      string
	Seq     int64
	Command string
	Domain  string
	Op      string
	// Request is the rendered loop request.
	Request string
}

// Record is one stored loop description.
type Record struct {
	ID    int64
	RunID string
	Seq   int64
	sched.Metadata
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, command, domain, op, request)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.Command,
		run.Domain,
		run.Op,
		run.Request,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteMetadata inserts one loop description for a run.
// Uses ON CONFLICT(run_id, seq) DO NOTHING so a replayed write is ignored.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteMetadata(ctx context.Context, runID string, seq int64, m sched.Metadata) error {
	kind := ""
	if m.Kind.Valid() {
		kind = m.Kind.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loop_metadata
		(run_id, seq, op, loc, kind, trip_count, chunk, executors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID,
		seq,
		string(m.Op),
		normalizeLoc(m.Loc),
		kind,
		encodeCount(m.TripCount),
		encodeCount(m.Chunk),
		m.Executors,
	)
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
