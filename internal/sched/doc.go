// Package sched computes static work-sharing bounds for parallel loops.
//
// Given a loop's iteration space, a static schedule and the identity of the
// calling executor, the solvers return the contiguous block of iterations
// that executor owns, the stride to the executor's next block (chunked
// schedules only) and whether it owns the globally last iteration.
//
// Three solvers are provided:
//
//   - ForStatic partitions a loop across the threads of one team.
//   - DistForStatic partitions a loop across teams, then across the threads
//     of each team (distribute parallel loops).
//   - TeamStatic returns only the team-level chunk of a (static, chunk)
//     distribute schedule.
//
// All solvers are generic over the four supported loop-variable domains
// (int32, uint32, int64, uint64) and perform their bound arithmetic in the
// loop variable's own width, so results near the domain limits wrap and
// clamp exactly as generated loop code expects.
//
// # Concurrency
//
// The solvers are pure functions of their arguments. Every executor of a
// loop calls the solver with its own Executor or League value; no state is
// shared between calls. The optional collaborators on Runtime (Observer and
// MetadataSink) must be safe for concurrent use if the Runtime is shared.
//
// # Errors
//
// With Runtime.Check enabled, malformed loops fail with a *ConsistencyError
// (ZERO_INCREMENT, ILLEGAL_BOUNDS, RANGE_TOO_LARGE). With checks disabled
// the solvers proceed best-effort. An unknown schedule Kind is a programming
// error and panics.
package sched
