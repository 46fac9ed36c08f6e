package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/roach88/loopsched/internal/sched"
)

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, command, domain, op, request
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Seq, &run.Command, &run.Domain, &run.Op, &run.Request)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ReadRuns returns all runs ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) if the store has no runs.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, command, domain, op, request
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Seq, &run.Command, &run.Domain, &run.Op, &run.Request); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadMetadata returns the loop descriptions of a run, or of every run
// when runID is empty, ordered by seq ASC, id ASC.
func (s *Store) ReadMetadata(ctx context.Context, runID string) ([]Record, error) {
	query := `
		SELECT id, run_id, seq, op, loc, kind, trip_count, chunk, executors
		FROM loop_metadata
	`
	var args []any
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY seq ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec           Record
		op, loc, kind string
		trip, chunk   int64
		executors     int64
	)
	if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Seq, &op, &loc, &kind, &trip, &chunk, &executors); err != nil {
		return Record{}, fmt.Errorf("scan metadata: %w", err)
	}
	rec.Op = sched.Op(op)
	rec.Loc = sched.Location(loc)
	rec.Kind = parseKind(kind)
	rec.TripCount = decodeCount(trip)
	rec.Chunk = decodeCount(chunk)
	rec.Executors = uint32(executors)
	return rec, nil
}

// LoopStats aggregates the metadata recorded for one loop location and
// solver.
type LoopStats struct {
	Op        sched.Op
	Loc       sched.Location
	Calls     int
	TotalTrip uint64
	MaxTrip   uint64
	MaxChunk  uint64
}

// Stats aggregates the metadata of a run (or of every run when runID is
// empty) per location and solver, ordered by location then op.
// Aggregation happens here rather than in SQL because trip counts are
// stored as bit patterns and SQLite sums them as signed integers.
func (s *Store) Stats(ctx context.Context, runID string) ([]LoopStats, error) {
	records, err := s.ReadMetadata(ctx, runID)
	if err != nil {
		return nil, err
	}

	type key struct {
		op  sched.Op
		loc sched.Location
	}
	byKey := make(map[key]*LoopStats)
	for _, rec := range records {
		k := key{rec.Op, rec.Loc}
		st, ok := byKey[k]
		if !ok {
			st = &LoopStats{Op: rec.Op, Loc: rec.Loc}
			byKey[k] = st
		}
		st.Calls++
		st.TotalTrip += rec.TripCount
		st.MaxTrip = max(st.MaxTrip, rec.TripCount)
		st.MaxChunk = max(st.MaxChunk, rec.Chunk)
	}

	stats := make([]LoopStats, 0, len(byKey))
	for _, st := range byKey {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Loc != stats[j].Loc {
			return stats[i].Loc < stats[j].Loc
		}
		return stats[i].Op < stats[j].Op
	})
	return stats, nil
}
