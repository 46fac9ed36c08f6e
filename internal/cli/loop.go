package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/loopsched/internal/plan"
	"github.com/roach88/loopsched/internal/sched"
	"github.com/roach88/loopsched/internal/store"
	"github.com/roach88/loopsched/internal/workshare"
)

// LoopOptions holds the loop flags shared by plan, dist and team.
type LoopOptions struct {
	*RootOptions
	Domain     string
	Kind       string
	Dist       string
	Chunk      int64
	Lower      string
	Upper      string
	Incr       int64
	Executors  uint32
	Serialized bool
	Teams      uint32
	Threads    uint32
	Loc        string
	Database   string
	Execute    bool
}

// PlanOutput is the result of a plan, dist or team command.
type PlanOutput struct {
	Request     string            `json:"request"`
	TripCount   uint64            `json:"trip_count"`
	Assignments []plan.Assignment `json:"assignments"`
	Verified    bool              `json:"verified"`
	Problems    []string          `json:"problems,omitempty"`
	Executed    *ExecuteOutput    `json:"executed,omitempty"`
	RunID       string            `json:"-"`
}

// ExecuteOutput summarizes a goroutine execution of the loop.
type ExecuteOutput struct {
	Iterations uint64 `json:"iterations"`
	Blocks     uint64 `json:"blocks"`
	Workers    int    `json:"workers"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Partition a loop across the threads of one team",
		Long: `Partition a loop across the threads of one team and verify that every
iteration is assigned exactly once.

--kind static resolves to the configured static flavor.

Exit codes:
  0 - Plan built and verified
  1 - Loop rejected by a consistency check, or coverage check failed
  2 - Command error (bad flags, database not found, etc.)

Examples:
  loopsched plan --lower 0 --upper 9 --executors 3
  loopsched plan --domain uint32 --kind chunked --chunk 4 --lower 4294967295 --upper 0 --incr -1 --executors 8
  loopsched plan --lower 0 --upper 999 --executors 4 --db ./loops.db --loc ";kernel.c;compute;12;5;;"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(opts, plan.OpFor, cmd)
		},
	}

	addLoopFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Kind, "kind", "static", "schedule kind (static|greedy|balanced|chunked)")
	cmd.Flags().Uint32Var(&opts.Executors, "executors", 0, "number of threads (required)")
	_ = cmd.MarkFlagRequired("executors")
	cmd.Flags().BoolVar(&opts.Serialized, "serialized", false, "run the loop as a serialized team")

	return cmd
}

// NewDistCommand creates the dist command.
func NewDistCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dist",
		Short: "Partition a loop across teams, then threads",
		Long: `Partition a loop across a league of teams with --dist, then across the
threads of each team with --kind, and verify coverage.

Examples:
  loopsched dist --dist balanced --kind greedy --lower 0 --upper 99 --teams 4 --threads 5
  loopsched dist --kind chunked --chunk 2 --lower 0 --upper 99 --teams 2 --threads 4 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(opts, plan.OpDist, cmd)
		},
	}

	addLoopFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Kind, "kind", "static", "thread schedule kind (static|greedy|balanced|chunked)")
	cmd.Flags().StringVar(&opts.Dist, "dist", "static", "team schedule kind (static|greedy|balanced)")
	addLeagueFlags(cmd, opts)
	cmd.Flags().Uint32Var(&opts.Threads, "threads", 0, "threads per team (required)")
	_ = cmd.MarkFlagRequired("threads")

	return cmd
}

// NewTeamCommand creates the team command.
func NewTeamCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "team",
		Short: "Deal loop chunks round robin to teams",
		Long: `Deal chunks of --chunk iterations round robin to teams and verify coverage.

Examples:
  loopsched team --chunk 3 --lower 0 --upper 9 --teams 2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(opts, plan.OpTeam, cmd)
		},
	}

	addLoopFlags(cmd, opts)
	addLeagueFlags(cmd, opts)

	return cmd
}

func addLoopFlags(cmd *cobra.Command, opts *LoopOptions) {
	cmd.Flags().StringVar(&opts.Domain, "domain", "int32", "loop variable type (int32|uint32|int64|uint64)")
	cmd.Flags().Int64Var(&opts.Chunk, "chunk", 1, "chunk size for chunked schedules")
	cmd.Flags().StringVar(&opts.Lower, "lower", "", "first iteration value (required)")
	_ = cmd.MarkFlagRequired("lower")
	cmd.Flags().StringVar(&opts.Upper, "upper", "", "last iteration value, inclusive (required)")
	_ = cmd.MarkFlagRequired("upper")
	cmd.Flags().Int64Var(&opts.Incr, "incr", 1, "loop increment")
	cmd.Flags().StringVar(&opts.Loc, "loc", "", "source location token, e.g. \";file.c;routine;line;col;;\"")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record loop metadata to this SQLite database")
	cmd.Flags().BoolVar(&opts.Execute, "execute", false, "also run the loop on goroutines and cross-check the counts")
}

func addLeagueFlags(cmd *cobra.Command, opts *LoopOptions) {
	cmd.Flags().Uint32Var(&opts.Teams, "teams", 0, "number of teams (required)")
	_ = cmd.MarkFlagRequired("teams")
}

// request builds the planner request, resolving "static" through the
// configuration.
func (o *LoopOptions) request(op plan.Op) (plan.Request, error) {
	d, err := plan.ParseDomain(o.Domain)
	if err != nil {
		return plan.Request{}, err
	}
	req := plan.Request{
		Domain:     d,
		Op:         op,
		Chunk:      o.Chunk,
		Lower:      o.Lower,
		Upper:      o.Upper,
		Incr:       o.Incr,
		Executors:  o.Executors,
		Serialized: o.Serialized,
		Teams:      o.Teams,
		Threads:    o.Threads,
		Loc:        sched.Location(o.Loc),
	}
	if op != plan.OpTeam {
		if req.Kind, err = o.Config.ResolveKind(o.Kind); err != nil {
			return plan.Request{}, fmt.Errorf("--kind: %w", err)
		}
	}
	if op == plan.OpDist {
		if req.Dist, err = o.Config.ResolveKind(o.Dist); err != nil {
			return plan.Request{}, fmt.Errorf("--dist: %w", err)
		}
	}
	if err := req.Validate(); err != nil {
		return plan.Request{}, err
	}
	return req, nil
}

func runLoop(opts *LoopOptions, op plan.Op, cmd *cobra.Command) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	cfg := opts.Config
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := opts.request(op)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid loop", err)
	}
	opts.Logger.Debug("planning loop", "request", req.String())

	var (
		rec  *store.Recorder
		sink sched.MetadataSink
	)
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Database
	}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				opts.Logger.Error("error closing database", "error", closeErr)
			}
		}()
		last, err := st.LastSeq()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read database clock", err)
		}
		rec, err = st.BeginRun(ctx, store.Run{
			Command: cmd.Name(),
			Domain:  string(req.Domain),
			Op:      string(req.Op),
			Request: req.String(),
		}, opts.runIDs(), store.NewClockAt(last))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		sink = rec
	}

	rt := cfg.Runtime(opts.Logger, sink)
	planner := &plan.Planner{Runtime: rt, MaxBlocks: cfg.MaxBlocks}
	p, err := planner.Build(req)
	if err != nil {
		return opts.buildFailure(cmd, err)
	}

	out := PlanOutput{
		Request:     req.String(),
		TripCount:   p.TripCount,
		Assignments: p.Assignments,
		Verified:    true,
	}
	if err := plan.Verify(p); err != nil {
		out.Verified = false
		var ce *plan.CoverageError
		if errors.As(err, &ce) {
			out.Problems = ce.Problems
		} else {
			out.Problems = []string{err.Error()}
		}
	}

	if opts.Execute {
		// A second runtime without the sink keeps the recorded metadata to
		// one row per loop.
		exrt := &sched.Runtime{Check: rt.Check, Observer: rt.Observer}
		tally, err := workshare.Execute(ctx, exrt, req)
		if err != nil {
			return WrapExitError(ExitFailure, "execution failed", err)
		}
		out.Executed = &ExecuteOutput{
			Iterations: tally.Iterations,
			Blocks:     tally.Blocks,
			Workers:    len(tally.Workers),
		}
		out.Problems = append(out.Problems, crossCheck(p, tally)...)
		out.Verified = len(out.Problems) == 0
	}

	if rec != nil {
		if err := rec.Err(); err != nil {
			return WrapExitError(ExitCommandError, "failed to record loop metadata", err)
		}
		out.RunID = rec.RunID()
		opts.Logger.Debug("recorded run", "run_id", out.RunID, "loops", rec.Count())
	}

	return outputPlan(opts.formatter(cmd), req.Op, out)
}

// crossCheck compares a goroutine execution with the plan it should match.
func crossCheck(p *plan.Plan, tally *workshare.Tally) []string {
	var problems []string
	if tally.Iterations != p.TripCount {
		problems = append(problems, fmt.Sprintf("execution ran %d iterations, plan has %d", tally.Iterations, p.TripCount))
	}
	want := 1
	if p.TripCount == 0 {
		want = 0
	}
	if owners := tally.LastOwners(); len(owners) != want {
		problems = append(problems, fmt.Sprintf("execution has %d last-iteration owners, want %d", len(owners), want))
	}
	return problems
}

// buildFailure reports a request the solvers rejected. Consistency errors
// exit with ExitFailure and their code; anything else is a command error.
func (o *LoopOptions) buildFailure(cmd *cobra.Command, err error) error {
	var ce *sched.ConsistencyError
	if !errors.As(err, &ce) {
		if errors.Is(err, plan.ErrTooManyBlocks) {
			return WrapExitError(ExitCommandError, "plan too large (raise max_blocks)", err)
		}
		return WrapExitError(ExitCommandError, "invalid loop", err)
	}
	var details any
	if len(ce.Details) > 0 {
		details = ce.Details
	}
	if ferr := o.formatter(cmd).Error(string(ce.Code), ce.Message, details); ferr != nil {
		return ferr
	}
	return WrapExitError(ExitFailure, "loop rejected", err)
}

// outputPlan writes the plan and returns ExitFailure when coverage failed.
func outputPlan(f *OutputFormatter, op plan.Op, out PlanOutput) error {
	text := func(w io.Writer) error {
		writePlanText(w, op, out, f.Verbose)
		return nil
	}
	if out.Verified {
		return f.Result(out, out.RunID, text)
	}

	cliErr := CLIError{
		Code:    "E_COVERAGE",
		Message: "coverage check failed",
		Details: out.Problems,
	}
	if err := f.Failure(cliErr, out, out.RunID, text); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "coverage check failed")
}

// writePlanText writes one line per executor. Counts are grouped with the
// English printer; bounds are printed exactly as the domain renders them.
func writePlanText(w io.Writer, op plan.Op, out PlanOutput, verbose bool) {
	pr := message.NewPrinter(language.English)

	fmt.Fprintln(w, out.Request)
	pr.Fprintf(w, "trip count %d\n", out.TripCount)

	for _, a := range out.Assignments {
		writeAssignment(w, pr, op, a, verbose)
	}

	if out.Executed != nil {
		pr.Fprintf(w, "executed %s in %s on %d workers\n",
			plural(pr, out.Executed.Iterations, "iteration"),
			plural(pr, out.Executed.Blocks, "block"),
			out.Executed.Workers)
	}
	if out.RunID != "" {
		fmt.Fprintf(w, "recorded run %s\n", out.RunID)
	}

	if !out.Verified {
		fmt.Fprintln(w, "✗ coverage check failed")
		for _, problem := range out.Problems {
			fmt.Fprintf(w, "  - %s\n", problem)
		}
		return
	}
	fmt.Fprintln(w, "✓ coverage verified")
}

func writeAssignment(w io.Writer, pr *message.Printer, op plan.Op, a plan.Assignment, verbose bool) {
	var who string
	switch op {
	case plan.OpFor:
		who = fmt.Sprintf("executor %d", a.Thread)
	case plan.OpTeam:
		who = fmt.Sprintf("team %d", a.Team)
	default:
		who = fmt.Sprintf("team %d thread %d", a.Team, a.Thread)
	}

	if a.Empty {
		fmt.Fprintf(w, "%s: empty\n", who)
		return
	}
	fmt.Fprintf(w, "%s: [%s, %s]", who, a.Lower, a.Upper)
	if a.UpperDist != "" {
		fmt.Fprintf(w, " upper_dist %s", a.UpperDist)
	}
	pr.Fprintf(w, " stride %d, %s in %s",
		a.Stride,
		plural(pr, a.Iterations(), "iteration"),
		plural(pr, uint64(len(a.Blocks)), "block"))
	if a.Last {
		fmt.Fprint(w, ", last")
	}
	fmt.Fprintln(w)

	if verbose {
		for _, b := range a.Blocks {
			pr.Fprintf(w, "  [%s, %s] from iteration %d\n", b.Lower, b.Upper, b.First)
		}
	}
}

func plural(pr *message.Printer, n uint64, noun string) string {
	if n == 1 {
		return pr.Sprintf("%d %s", n, noun)
	}
	return pr.Sprintf("%d %ss", n, noun)
}
