package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/loopsched/internal/sched"
)

// Recorder writes loop metadata for one run. It implements
// sched.MetadataSink and may be shared by concurrent executors.
//
// LoopMetadata cannot return an error, so the first write failure is kept
// and reported by Err; later writes are skipped.
type Recorder struct {
	store *Store
	ctx   context.Context
	run   Run
	clock Sequencer

	mu  sync.Mutex
	n   int
	err error
}

// BeginRun writes a run record and returns a Recorder for its metadata.
// An empty run.ID is filled from ids, and run.Seq from clock.
func (s *Store) BeginRun(ctx context.Context, run Run, ids RunIDGenerator, clock Sequencer) (*Recorder, error) {
	if run.ID == "" {
		run.ID = ids.Generate()
	}
	run.Seq = clock.Next()
	if err := s.WriteRun(ctx, run); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &Recorder{store: s, ctx: ctx, run: run, clock: clock}, nil
}

// RunID returns the id of the run being recorded.
func (r *Recorder) RunID() string {
	return r.run.ID
}

// LoopMetadata implements sched.MetadataSink.
func (r *Recorder) LoopMetadata(m sched.Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if err := r.store.WriteMetadata(r.ctx, r.run.ID, r.clock.Next(), m); err != nil {
		r.err = err
		return
	}
	r.n++
}

// Count returns the number of rows written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
