package sched

import (
	"fmt"
	"strconv"
	"strings"
)

// IterationSpace is an inclusive loop range [Lower, Upper] stepped by Incr.
type IterationSpace[T Index, S Signed] struct {
	Lower T
	Upper T
	Incr  S
}

// Empty reports whether the space is a zero-trip loop: Upper below Lower
// for a positive increment, or above it for a negative one.
func (sp IterationSpace[T, S]) Empty() bool {
	if sp.Incr > 0 {
		return sp.Upper < sp.Lower
	}
	return sp.Lower < sp.Upper
}

// TripCount returns the number of iterations in the space, truncated to
// the width of the domain's unsigned counter. Zero-trip spaces and a zero
// increment yield 0; so does a space covering the entire domain, whose
// count does not fit the counter.
func (sp IterationSpace[T, S]) TripCount() uint64 {
	if sp.Incr == 0 || sp.Empty() {
		return 0
	}
	return tripCount(DomainOf[T](), sp.Lower, sp.Upper, sp.Incr)
}

// String renders the space as "[lower, upper] step incr".
func (sp IterationSpace[T, S]) String() string {
	return fmt.Sprintf("[%d, %d] step %d", sp.Lower, sp.Upper, sp.Incr)
}

// tripCount computes (upper-lower)/incr + 1 in the domain's unsigned
// counter. Callers guarantee incr != 0.
func tripCount[T Index, S Signed](d Domain[T], lower, upper T, incr S) uint64 {
	switch {
	case incr == 1:
		return d.count(uint64(upper-lower) + 1)
	case incr == -1:
		return d.count(uint64(lower-upper) + 1)
	case incr > 1:
		return d.count(d.count(uint64(upper-lower))/uint64(incr) + 1)
	case incr < -1:
		return d.count(d.count(uint64(lower-upper))/uint64(-int64(incr)) + 1)
	}
	return 0
}

// Kind selects a static scheduling policy.
type Kind int

const (
	// Greedy hands out ceil(trip/n) iterations per executor in index
	// order; the last non-empty block absorbs the shortfall.
	Greedy Kind = iota + 1
	// Balanced hands out trip/n iterations per executor, plus one for
	// the first trip%n executors.
	Balanced
	// Chunked deals fixed-size chunks round-robin; executors advance by
	// the returned stride.
	Chunked
)

var kindNames = map[Kind]string{
	Greedy:   "greedy",
	Balanced: "balanced",
	Chunked:  "chunked",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k names a known policy.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind parses "greedy", "balanced" or "chunked" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "greedy":
		return Greedy, nil
	case "balanced":
		return Balanced, nil
	case "chunked":
		return Chunked, nil
	}
	return 0, &ConsistencyError{
		Code:    ErrCodeUnknownSchedule,
		Message: fmt.Sprintf("unknown schedule kind %q", s),
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid schedule kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Location is the source-location token of a loop, in the
// ";file;routine;line;column;;" form emitted by compilers.
type Location string

// File returns the file component of the location, or "" if absent.
func (l Location) File() string { return l.field(1) }

// Routine returns the enclosing routine name, or "" if absent.
func (l Location) Routine() string { return l.field(2) }

// Line returns the line number, or 0 if absent or malformed.
func (l Location) Line() int {
	n, _ := strconv.Atoi(l.field(3))
	return n
}

// Column returns the column number, or 0 if absent or malformed.
func (l Location) Column() int {
	n, _ := strconv.Atoi(l.field(4))
	return n
}

func (l Location) field(i int) string {
	parts := strings.Split(string(l), ";")
	if i >= len(parts) {
		return ""
	}
	return parts[i]
}

// Loop describes one work-sharing loop entry as seen by a single executor.
type Loop[T Index, S Signed] struct {
	// Loc identifies the loop's source location for diagnostics.
	Loc Location
	// GlobalID is the caller's global thread id, used only for diagnostics.
	GlobalID int32
	// Kind is the thread-level schedule.
	Kind Kind
	// Chunk is the chunk size for Chunked; values below 1 mean 1.
	Chunk S
	// Space is the full iteration space of the loop.
	Space IterationSpace[T, S]
}

// Executor identifies the calling thread within its team.
type Executor struct {
	Index uint32
	Count uint32
	// Serialized marks a team that runs the loop on one thread regardless
	// of Count (an inactive parallel region).
	Serialized bool
}

// League identifies the calling thread within a two-level team hierarchy.
type League struct {
	Team    uint32
	Teams   uint32
	Thread  uint32
	Threads uint32
}

// Partition is the block of iterations assigned to one executor.
type Partition[T Index, S Signed] struct {
	Lower T
	Upper T
	// Stride is the distance to the executor's next block. It is only
	// meaningful for Chunked schedules; other policies report a stride
	// that steps past the whole space.
	Stride S
	// Last is set for the executor that runs the globally last iteration.
	Last bool
	// Empty is set when the executor has no iterations. Empty blocks use
	// Lower = original upper + incr, so a bounds test also skips them
	// except where that sum wraps at the domain limit.
	Empty bool
}

// DistPartition is the result of DistForStatic.
type DistPartition[T Index, S Signed] struct {
	Partition[T, S]
	// UpperDist is the upper bound of the calling thread's team block.
	UpperDist T
}
