// Package harness runs loop scenarios against the planner.
//
// A scenario names one loop and the assignments its executors are expected
// to receive. The harness builds the plan, checks coverage, compares the
// expected rows, and records loop metadata into a fresh in-memory store so
// that profiling output is part of the result.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: greedy-ten-by-three
//	description: "ten iterations over three executors"
//	domain: int32          # int32 | uint32 | int64 | uint64
//	op: for                # for | dist | team
//	kind: greedy           # greedy | balanced | chunked | static
//	dist: balanced         # dist only: greedy | balanced | static
//	chunk: 2
//	lower: 0
//	upper: 9
//	incr: 1                # defaults to 1
//	executors: 3           # for
//	teams: 2               # dist and team
//	threads: 2             # dist
//	expect:
//	  - {team: 0, thread: 0, lower: 0, upper: 3, last: false}
//
// Bounds are parsed in the scenario's domain, so 4294967295 is a valid
// uint32 bound. Expected rows may also pin empty, stride and upper_dist.
// A scenario may instead expect a consistency error:
//
//	error: ZERO_INCREMENT
//
// Unknown fields are rejected.
//
// # Deterministic Testing
//
// Every run uses testutil.DeterministicClock and a fixed run id of the form
// "scenario-<name>", so metadata rows are identical across runs and can be
// compared against golden files.
package harness
