// Package plan enumerates what every executor of a loop runs.
//
// A Planner calls one of the sched solvers once per executor (or per
// team/thread pair), expands chunked results into the concrete blocks that
// generated loop code would execute, and verifies the league-wide
// invariants: the blocks cover the iteration space with no gap and no
// overlap, and exactly one executor owns the last iteration.
//
// Requests are untyped so that command-line flags and scenario files can
// describe loops over any of the four integer domains; Build dispatches to
// the matching generic instantiation.
package plan
