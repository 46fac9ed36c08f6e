package plan

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/loopsched/internal/sched"
)

// Domain names a loop-variable type.
type Domain string

const (
	Int32  Domain = "int32"
	Uint32 Domain = "uint32"
	Int64  Domain = "int64"
	Uint64 Domain = "uint64"
)

// Domains lists the supported domains in display order.
var Domains = []Domain{Int32, Uint32, Int64, Uint64}

// ParseDomain parses a domain name.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Int32, Uint32, Int64, Uint64:
		return d, nil
	}
	return "", fmt.Errorf("unknown domain %q: must be one of %v", s, Domains)
}

// Op selects the solver.
type Op string

const (
	// OpFor partitions across the threads of one team (ForStatic).
	OpFor Op = "for"
	// OpDist partitions across teams, then threads (DistForStatic).
	OpDist Op = "dist"
	// OpTeam deals chunks to teams only (TeamStatic).
	OpTeam Op = "team"
)

// ParseOp parses an operation name.
func ParseOp(s string) (Op, error) {
	op := Op(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpFor, OpDist, OpTeam:
		return op, nil
	}
	return "", fmt.Errorf("unknown op %q: must be one of for, dist, team", s)
}

// Request describes one loop in a domain-independent form. Bounds are
// decimal strings parsed in the request's domain.
type Request struct {
	Domain Domain
	Op     Op
	// Kind is the thread-level schedule. Ignored by OpTeam.
	Kind sched.Kind
	// Dist is the team-level schedule of OpDist: Greedy or Balanced.
	Dist  sched.Kind
	Chunk int64
	Lower string
	Upper string
	Incr  int64

	// Executors is the thread count of OpFor.
	Executors  uint32
	Serialized bool

	// Teams and Threads size the league of OpDist and OpTeam.
	Teams   uint32
	Threads uint32

	Loc sched.Location
}

// String renders the request in a compact single-line form.
func (r Request) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s, %s] step %d", r.Op, r.Domain, r.Lower, r.Upper, r.Incr)
	switch r.Op {
	case OpFor:
		fmt.Fprintf(&b, " kind=%s executors=%d", r.Kind, r.Executors)
		if r.Serialized {
			b.WriteString(" serialized")
		}
	case OpDist:
		fmt.Fprintf(&b, " dist=%s kind=%s teams=%d threads=%d", r.Dist, r.Kind, r.Teams, r.Threads)
	case OpTeam:
		fmt.Fprintf(&b, " teams=%d", r.Teams)
	}
	if r.Op == OpTeam || r.Kind == sched.Chunked {
		fmt.Fprintf(&b, " chunk=%d", r.Chunk)
	}
	return b.String()
}

// Validate checks the parts of the request that the solvers treat as
// programming errors, so that a bad request is reported instead of
// panicking.
func (r Request) Validate() error {
	if _, err := ParseDomain(string(r.Domain)); err != nil {
		return err
	}
	switch r.Op {
	case OpFor:
		if !r.Kind.Valid() {
			return fmt.Errorf("unknown schedule kind %s", r.Kind)
		}
	case OpDist:
		if !r.Kind.Valid() {
			return fmt.Errorf("unknown schedule kind %s", r.Kind)
		}
		if r.Dist != sched.Greedy && r.Dist != sched.Balanced {
			return fmt.Errorf("distribute schedule must be greedy or balanced, got %s", r.Dist)
		}
	case OpTeam:
	default:
		return fmt.Errorf("unknown op %q", r.Op)
	}
	return nil
}

// parseIndex parses s as a value of T.
func parseIndex[T sched.Index](s string) (T, error) {
	d := sched.DomainOf[T]()
	s = strings.TrimSpace(s)
	if d.Signed {
		v, err := strconv.ParseInt(s, 10, int(d.Bits))
		if err != nil {
			return 0, fmt.Errorf("parse %s bound %q: %w", d.Name, s, err)
		}
		return T(v), nil
	}
	v, err := strconv.ParseUint(s, 10, int(d.Bits))
	if err != nil {
		return 0, fmt.Errorf("parse %s bound %q: %w", d.Name, s, err)
	}
	return T(v), nil
}

// narrow converts v to S, failing when it does not fit.
func narrow[S sched.Signed](name string, v int64) (S, error) {
	var zero S
	if _, ok := any(zero).(int32); ok && (v < math.MinInt32 || v > math.MaxInt32) {
		return 0, fmt.Errorf("%s %d does not fit a 32-bit increment", name, v)
	}
	return S(v), nil
}

// LoopOf converts the request into a typed loop. T and S must be the
// request's domain and its increment type.
func LoopOf[T sched.Index, S sched.Signed](req Request) (sched.Loop[T, S], error) {
	lower, err := parseIndex[T](req.Lower)
	if err != nil {
		return sched.Loop[T, S]{}, err
	}
	upper, err := parseIndex[T](req.Upper)
	if err != nil {
		return sched.Loop[T, S]{}, err
	}
	incr, err := narrow[S]("increment", req.Incr)
	if err != nil {
		return sched.Loop[T, S]{}, err
	}
	chunk, err := narrow[S]("chunk", req.Chunk)
	if err != nil {
		return sched.Loop[T, S]{}, err
	}
	return sched.Loop[T, S]{
		Loc:   req.Loc,
		Kind:  req.Kind,
		Chunk: chunk,
		Space: sched.IterationSpace[T, S]{Lower: lower, Upper: upper, Incr: incr},
	}, nil
}

// Canonical re-renders a bound in the domain's decimal form, so that
// "007" and "7" compare equal.
func Canonical(d Domain, s string) (string, error) {
	switch d {
	case Int32:
		return canonical[int32](s)
	case Uint32:
		return canonical[uint32](s)
	case Int64:
		return canonical[int64](s)
	case Uint64:
		return canonical[uint64](s)
	}
	return "", fmt.Errorf("unknown domain %q", d)
}

func canonical[T sched.Index](s string) (string, error) {
	v, err := parseIndex[T](s)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}
