package store

import "sync/atomic"

// Clock is the monotonic logical clock that orders runs and metadata rows.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// Executors emitting metadata from several goroutines share one Clock.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used to resume after the highest seq already stored.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Sequencer hands out sequence numbers. Clock implements it, as does the
// deterministic clock used in tests.
type Sequencer interface {
	Next() int64
}

// LastSeq returns the highest seq stored in runs or loop_metadata, so a
// new process can resume its clock after it.
func (s *Store) LastSeq() (int64, error) {
	var seq int64
	err := s.db.QueryRow(`
		SELECT MAX(m) FROM (
			SELECT COALESCE(MAX(seq), 0) AS m FROM runs
			UNION ALL
			SELECT COALESCE(MAX(seq), 0) AS m FROM loop_metadata
		)
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}
