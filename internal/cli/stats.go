package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/loopsched/internal/sched"
	"github.com/roach88/loopsched/internal/store"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - restrict to one run
}

// StatsResult holds the stats output.
type StatsResult struct {
	Run   *RunSummary `json:"run,omitempty"`
	Runs  int         `json:"runs"`
	Loops []LoopRow   `json:"loops"`
}

// RunSummary describes the run the stats were restricted to.
type RunSummary struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Request string `json:"request"`
}

// LoopRow is the aggregated metadata of one loop location and solver.
type LoopRow struct {
	Op        string `json:"op"`
	Loc       string `json:"loc,omitempty"`
	Calls     int    `json:"calls"`
	TotalTrip uint64 `json:"total_trip"`
	MaxTrip   uint64 `json:"max_trip"`
	MaxChunk  uint64 `json:"max_chunk"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded loop metadata",
		Long: `Summarize the loop metadata recorded by plan, dist and team.

Rows are grouped by source location and solver, with call counts, total
and largest trip counts, and the largest chunk.

Examples:
  loopsched stats --db ./loops.db
  loopsched stats --db ./loops.db --run 01927d4e-5a3b-7c1f-8e2d-4f6a8b9c0d1e
  loopsched stats --db ./loops.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to the configured database)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "restrict to one run id")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	ctx := context.Background()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.Database
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no database: pass --db or set database in the config")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result := StatsResult{Loops: []LoopRow{}}
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		result.Run = &RunSummary{ID: run.ID, Command: run.Command, Request: run.Request}
		result.Runs = 1
	} else {
		runs, err := st.ReadRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read runs", err)
		}
		result.Runs = len(runs)
	}

	stats, err := st.Stats(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to aggregate metadata", err)
	}
	for _, s := range stats {
		result.Loops = append(result.Loops, LoopRow{
			Op:        string(s.Op),
			Loc:       string(s.Loc),
			Calls:     s.Calls,
			TotalTrip: s.TotalTrip,
			MaxTrip:   s.MaxTrip,
			MaxChunk:  s.MaxChunk,
		})
	}

	return opts.formatter(cmd).Result(result, opts.RunID, func(w io.Writer) error {
		writeStatsText(w, result)
		return nil
	})
}

func writeStatsText(w io.Writer, result StatsResult) {
	pr := message.NewPrinter(language.English)

	if result.Run != nil {
		fmt.Fprintf(w, "run %s (%s): %s\n", result.Run.ID, result.Run.Command, result.Run.Request)
	} else {
		pr.Fprintf(w, "%s recorded\n", plural(pr, uint64(result.Runs), "run"))
	}

	if len(result.Loops) == 0 {
		fmt.Fprintln(w, "No loop metadata found.")
		return
	}
	for _, l := range result.Loops {
		pr.Fprintf(w, "%s %s: %s, %s total, max trip %d, max chunk %d\n",
			locLabel(sched.Location(l.Loc)),
			l.Op,
			plural(pr, uint64(l.Calls), "call"),
			plural(pr, l.TotalTrip, "iteration"),
			l.MaxTrip,
			l.MaxChunk)
	}
}

// locLabel renders a location token as "file:line[:col] routine".
func locLabel(loc sched.Location) string {
	if loc.File() == "" {
		return "(unknown location)"
	}
	label := fmt.Sprintf("%s:%d", loc.File(), loc.Line())
	if c := loc.Column(); c > 0 {
		label += fmt.Sprintf(":%d", c)
	}
	if r := loc.Routine(); r != "" {
		label += " " + r
	}
	return label
}
