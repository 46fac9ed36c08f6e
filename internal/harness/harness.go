package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/loopsched/internal/plan"
	"github.com/roach88/loopsched/internal/sched"
	"github.com/roach88/loopsched/internal/store"
	"github.com/roach88/loopsched/internal/testutil"
)

// Options tunes a scenario run.
type Options struct {
	// Resolve maps kind names. Nil means sched.ParseKind, so "static" is
	// rejected.
	Resolve KindResolver

	// MaxBlocks limits plan expansion; zero means plan.DefaultMaxBlocks.
	MaxBlocks int

	// Logger, when set, receives solver trace events at debug level.
	Logger *slog.Logger
}

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and run id.
type Harness struct {
	store *store.Store
	clock *testutil.DeterministicClock
	ids   *testutil.FixedRunIDGenerator
	opts  Options
}

// Run executes a scenario with default options.
func Run(scenario *Scenario) (*Result, error) {
	return RunWith(scenario, Options{})
}

// RunWith executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A returned error means the scenario could not be run at all; plan,
// coverage and expectation failures are reported in Result.Errors.
//
// Execution flow:
// 1. Create fresh in-memory database and begin a run
// 2. Build the plan with the run's recorder as metadata sink
// 3. Check the expected error, or verify coverage and expected rows
// 4. Read back the recorded metadata
func RunWith(scenario *Scenario, opts Options) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		clock: testutil.NewDeterministicClock(),
		ids:   testutil.NewFixedRunIDGenerator("scenario-" + scenario.Name),
		opts:  opts,
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, s *Scenario) (*Result, error) {
	req, err := s.Request(h.opts.Resolve)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	rec, err := h.store.BeginRun(ctx, store.Run{
		Command: "test",
		Domain:  string(req.Domain),
		Op:      string(req.Op),
		Request: req.String(),
	}, h.ids, h.clock)
	if err != nil {
		return nil, err
	}

	rt := &sched.Runtime{Check: s.checking(), Metadata: rec}
	if h.opts.Logger != nil {
		rt.Observer = sched.SlogObserver{Logger: h.opts.Logger}
	}
	planner := &plan.Planner{Runtime: rt, MaxBlocks: h.opts.MaxBlocks}

	result := NewResult()
	result.Request = req.String()

	p, err := planner.Build(req)
	switch {
	case s.Error != "":
		checkError(s.Error, err, result)
	case err != nil:
		result.AddError(fmt.Sprintf("build: %v", err))
	default:
		result.Plan = p
		checkCoverage(p, result)
		checkExpect(s, p, result)
	}

	if err := rec.Err(); err != nil {
		return nil, fmt.Errorf("record metadata: %w", err)
	}
	result.Metadata, err = h.store.ReadMetadata(ctx, rec.RunID())
	if err != nil {
		return nil, err
	}
	return result, nil
}

func checkError(want string, err error, result *Result) {
	if err == nil {
		result.AddError(fmt.Sprintf("expected error %s, got none", want))
		return
	}
	if got := sched.CodeOf(err); string(got) != want {
		result.AddError(fmt.Sprintf("expected error %s, got %v", want, err))
	}
}

func checkCoverage(p *plan.Plan, result *Result) {
	err := plan.Verify(p)
	if err == nil {
		return
	}
	var ce *plan.CoverageError
	if !errors.As(err, &ce) {
		result.AddError(err.Error())
		return
	}
	for _, problem := range ce.Problems {
		result.AddError("coverage: " + problem)
	}
}

type worker struct {
	team, thread uint32
}

// checkExpect compares each expected row with the plan. Bounds are
// compared in canonical form.
func checkExpect(s *Scenario, p *plan.Plan, result *Result) {
	byWorker := make(map[worker]plan.Assignment, len(p.Assignments))
	for _, a := range p.Assignments {
		byWorker[worker{a.Team, a.Thread}] = a
	}
	d := p.Request.Domain

	for i, row := range s.Expect {
		a, ok := byWorker[worker{row.Team, row.Thread}]
		if !ok {
			result.AddError(fmt.Sprintf("expect[%d]: no assignment for team %d thread %d", i, row.Team, row.Thread))
			continue
		}
		fail := func(format string, args ...any) {
			prefix := fmt.Sprintf("expect[%d]: team %d thread %d: ", i, row.Team, row.Thread)
			result.AddError(prefix + fmt.Sprintf(format, args...))
		}

		compareBound(d, "lower", row.Lower, a.Lower, fail)
		compareBound(d, "upper", row.Upper, a.Upper, fail)
		if row.UpperDist != "" {
			compareBound(d, "upper_dist", row.UpperDist, a.UpperDist, fail)
		}
		if row.Last != a.Last {
			fail("last = %t, want %t", a.Last, row.Last)
		}
		if row.Empty != nil && *row.Empty != a.Empty {
			fail("empty = %t, want %t", a.Empty, *row.Empty)
		}
		if row.Stride != nil && *row.Stride != a.Stride {
			fail("stride = %d, want %d", a.Stride, *row.Stride)
		}
	}
}

func compareBound(d plan.Domain, name string, want Value, got string, fail func(string, ...any)) {
	canon, err := plan.Canonical(d, string(want))
	if err != nil {
		fail("%s: %v", name, err)
		return
	}
	if canon != got {
		fail("%s = %s, want %s", name, got, canon)
	}
}
