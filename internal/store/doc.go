// Package store provides SQLite-backed storage for loop metadata.
//
// Every CLI invocation that records metadata opens a run, identified by a
// UUIDv7, and appends one loop_metadata row per loop the solvers describe
// through the sched.MetadataSink collaborator. Recording never influences
// partition results.
//
// # Ordering
//
// Runs and rows are ordered by a logical seq from Clock, never by wall
// time. Queries use ORDER BY seq ASC, id ASC so results are identical
// across reads.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
