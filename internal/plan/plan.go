package plan

import (
	"errors"
	"fmt"

	"github.com/roach88/loopsched/internal/sched"
)

// DefaultMaxBlocks bounds the number of blocks a single plan may expand.
const DefaultMaxBlocks = 1 << 16

// ErrTooManyBlocks is returned when expanding a plan would exceed the
// planner's block limit.
var ErrTooManyBlocks = errors.New("too many blocks")

// Plan is the complete assignment of one loop across its executors.
type Plan struct {
	Request     Request      `json:"-"`
	TripCount   uint64       `json:"trip_count"`
	Assignments []Assignment `json:"assignments"`
}

// Assignment is what one executor was given and what it runs. Bounds are
// rendered in the loop's domain.
type Assignment struct {
	Team      uint32  `json:"team"`
	Thread    uint32  `json:"thread"`
	Lower     string  `json:"lower"`
	Upper     string  `json:"upper"`
	UpperDist string  `json:"upper_dist,omitempty"`
	Stride    int64   `json:"stride"`
	Last      bool    `json:"last"`
	Empty     bool    `json:"empty"`
	Blocks    []Block `json:"blocks,omitempty"`
}

// Iterations returns the number of iterations the executor runs.
func (a Assignment) Iterations() uint64 {
	var n uint64
	for _, b := range a.Blocks {
		n += b.Count
	}
	return n
}

// Block is one contiguous run of iterations. First is the ordinal of the
// block's first iteration within the whole space.
type Block struct {
	Lower string `json:"lower"`
	Upper string `json:"upper"`
	First uint64 `json:"first"`
	Count uint64 `json:"count"`
}

// Planner builds plans.
type Planner struct {
	// Runtime is passed to every solver call.
	Runtime *sched.Runtime
	// MaxBlocks limits expansion; zero means DefaultMaxBlocks.
	MaxBlocks int
}

// Build runs the request's solver for every executor and expands the
// results into blocks.
func (pl *Planner) Build(req Request) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch req.Domain {
	case Int32:
		return build[int32, int32](pl, req)
	case Uint32:
		return build[uint32, int32](pl, req)
	case Int64:
		return build[int64, int64](pl, req)
	default:
		return build[uint64, int64](pl, req)
	}
}

func (pl *Planner) maxBlocks() int {
	if pl.MaxBlocks > 0 {
		return pl.MaxBlocks
	}
	return DefaultMaxBlocks
}

func build[T sched.Index, S sched.Signed](pl *Planner, req Request) (*Plan, error) {
	loop, err := LoopOf[T, S](req)
	if err != nil {
		return nil, err
	}
	b := &builder[T, S]{
		d:     sched.DomainOf[T](),
		loop:  loop,
		limit: pl.maxBlocks(),
		plan:  &Plan{Request: req, TripCount: loop.Space.TripCount()},
	}

	switch req.Op {
	case OpFor:
		err = b.forStatic(pl.Runtime, req.Executors, req.Serialized)
	case OpDist:
		err = b.distForStatic(pl.Runtime, req.Dist, req.Teams, req.Threads)
	case OpTeam:
		err = b.teamStatic(pl.Runtime, req.Teams)
	}
	if err != nil {
		return nil, err
	}
	return b.plan, nil
}

type builder[T sched.Index, S sched.Signed] struct {
	d      sched.Domain[T]
	loop   sched.Loop[T, S]
	limit  int
	blocks int
	plan   *Plan
}

func (b *builder[T, S]) forStatic(rt *sched.Runtime, n uint32, serialized bool) error {
	if n == 0 {
		_, err := sched.ForStatic(rt, b.loop, sched.Executor{Count: 0})
		return err
	}
	for i := uint32(0); i < n; i++ {
		p, err := sched.ForStatic(rt, b.loop, sched.Executor{Index: i, Count: n, Serialized: serialized})
		if err != nil {
			return err
		}
		a, err := b.assign(p, 0, i, b.loop.Kind == sched.Chunked, b.loop.Space.Upper)
		if err != nil {
			return err
		}
		b.plan.Assignments = append(b.plan.Assignments, a)
	}
	return nil
}

func (b *builder[T, S]) distForStatic(rt *sched.Runtime, dist sched.Kind, teams, threads uint32) error {
	if teams == 0 || threads == 0 {
		_, err := sched.DistForStatic(rt, b.loop, dist, sched.League{Teams: teams, Threads: threads})
		return err
	}
	for team := uint32(0); team < teams; team++ {
		for thread := uint32(0); thread < threads; thread++ {
			lg := sched.League{Team: team, Teams: teams, Thread: thread, Threads: threads}
			res, err := sched.DistForStatic(rt, b.loop, dist, lg)
			if err != nil {
				return err
			}
			a, err := b.assign(res.Partition, team, thread, b.loop.Kind == sched.Chunked, res.UpperDist)
			if err != nil {
				return err
			}
			a.UpperDist = fmt.Sprint(res.UpperDist)
			b.plan.Assignments = append(b.plan.Assignments, a)
		}
	}
	return nil
}

func (b *builder[T, S]) teamStatic(rt *sched.Runtime, teams uint32) error {
	if teams == 0 {
		_, err := sched.TeamStatic(rt, b.loop, sched.League{})
		return err
	}
	for team := uint32(0); team < teams; team++ {
		p, err := sched.TeamStatic(rt, b.loop, sched.League{Team: team, Teams: teams})
		if err != nil {
			return err
		}
		a, err := b.assign(p, team, 0, true, b.loop.Space.Upper)
		if err != nil {
			return err
		}
		b.plan.Assignments = append(b.plan.Assignments, a)
	}
	return nil
}

func (b *builder[T, S]) assign(p sched.Partition[T, S], team, thread uint32, chunked bool, limit T) (Assignment, error) {
	sp := b.loop.Space
	a := Assignment{
		Team:   team,
		Thread: thread,
		Lower:  fmt.Sprint(p.Lower),
		Upper:  fmt.Sprint(p.Upper),
		Stride: int64(p.Stride),
		Last:   p.Last,
		Empty:  p.Empty,
	}
	for lo, hi := range Rounds(p, chunked, b.loop.Chunk, limit, sp.Incr) {
		if b.blocks >= b.limit {
			return Assignment{}, fmt.Errorf("%w: more than %d", ErrTooManyBlocks, b.limit)
		}
		b.blocks++
		first := ordinal(b.d, sp.Lower, lo, sp.Incr)
		a.Blocks = append(a.Blocks, Block{
			Lower: fmt.Sprint(lo),
			Upper: fmt.Sprint(hi),
			First: first,
			Count: ordinal(b.d, sp.Lower, hi, sp.Incr) - first + 1,
		})
	}
	return a, nil
}
