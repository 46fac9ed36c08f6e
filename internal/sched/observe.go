package sched

import (
	"context"
	"log/slog"
)

// Runtime carries the optional collaborators of the solvers. A nil
// *Runtime disables consistency checks and all sinks.
type Runtime struct {
	// Check enables consistency checking of increments and bounds.
	Check bool

	// Observer receives diagnostic events at fixed points of each call.
	Observer Observer

	// Metadata receives one loop description per loop, from the
	// representative executor, for profiling.
	Metadata MetadataSink
}

// Phase is an observation point within a solver call.
type Phase string

const (
	PhaseEnter    Phase = "enter"
	PhaseZeroTrip Phase = "zero_trip"
	PhaseSerial   Phase = "serial"
	PhaseExit     Phase = "exit"
)

// Event is a diagnostic snapshot of a solver call. Bound values are held
// in the loop variable's own type.
type Event struct {
	Op       Op
	Phase    Phase
	Loc      Location
	GlobalID int32
	Kind     Kind
	Lower    any
	Upper    any
	// UpperDist is set by DistForStatic on exit.
	UpperDist any
	Stride    any
	Last      bool
}

// Observer is the diagnostic sink. Implementations must not block and
// must be safe for concurrent use when shared across executors.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// SlogObserver logs events at debug level.
type SlogObserver struct {
	Logger *slog.Logger
}

// Observe implements Observer.
func (o SlogObserver) Observe(e Event) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{
		"op", e.Op,
		"phase", e.Phase,
		"gtid", e.GlobalID,
		"kind", e.Kind,
		"lower", e.Lower,
		"upper", e.Upper,
		"stride", e.Stride,
		"last", e.Last,
	}
	if e.UpperDist != nil {
		attrs = append(attrs, "upper_dist", e.UpperDist)
	}
	if e.Loc != "" {
		attrs = append(attrs, "loc", string(e.Loc))
	}
	logger.Debug("static init", attrs...)
}

// Metadata describes a loop for profiling.
type Metadata struct {
	Op        Op
	Loc       Location
	Kind      Kind
	TripCount uint64
	// Chunk is the requested chunk for Chunked, otherwise the size of the
	// largest block, ceil(TripCount/Executors).
	Chunk uint64
	// Executors is the thread count, or the team count for team-level
	// metadata.
	Executors uint32
}

// MetadataSink records loop metadata. It never influences results.
type MetadataSink interface {
	LoopMetadata(Metadata)
}

func (rt *Runtime) checking() bool {
	return rt != nil && rt.Check
}

// observing reports whether anyone receives events. Events are built
// only then.
func (rt *Runtime) observing() bool {
	return rt != nil && rt.Observer != nil
}

func (rt *Runtime) record(m Metadata) {
	if rt == nil || rt.Metadata == nil {
		return
	}
	rt.Metadata.LoopMetadata(m)
}

func ceilDiv(a, b uint64) uint64 {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}
