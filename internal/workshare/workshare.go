// Package workshare runs a loop body across goroutines, each goroutine
// asking the sched solvers for its own share of the iteration space.
//
// Workers never coordinate while computing their bounds: every worker calls
// the solver with its own identity and the results are disjoint by
// construction. The fork-join itself is an errgroup; the first body error
// cancels the context handed to the remaining workers.
package workshare

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/loopsched/internal/plan"
	"github.com/roach88/loopsched/internal/sched"
)

// Worker identifies the goroutine running a block.
type Worker struct {
	Team   uint32
	Thread uint32
	// Last is set for the worker that owns the loop's last iteration.
	Last bool
}

func (w Worker) String() string {
	return fmt.Sprintf("team %d thread %d", w.Team, w.Thread)
}

// Body runs the iterations lo through hi, inclusive, stepping by the
// loop's increment. It is called once per block.
type Body[T sched.Index] func(ctx context.Context, w Worker, lo, hi T) error

// For runs loop on n workers of a single team.
func For[T sched.Index, S sched.Signed](ctx context.Context, rt *sched.Runtime, loop sched.Loop[T, S], n uint32, body Body[T]) error {
	if n == 0 {
		_, err := sched.ForStatic(rt, loop, sched.Executor{})
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := uint32(0); i < n; i++ {
		g.Go(func() error {
			p, err := sched.ForStatic(rt, loop, sched.Executor{Index: i, Count: n})
			if err != nil {
				return err
			}
			w := Worker{Thread: i, Last: p.Last}
			return run(gctx, w, p, loop.Kind == sched.Chunked, loop, loop.Space.Upper, body)
		})
	}
	return g.Wait()
}

// Distribute runs loop over a league of teams, each team forking its own
// threads once its goroutine starts. dist is the team-level schedule and
// loop.Kind the thread-level one.
func Distribute[T sched.Index, S sched.Signed](ctx context.Context, rt *sched.Runtime, loop sched.Loop[T, S], dist sched.Kind, teams, threads uint32, body Body[T]) error {
	if teams == 0 || threads == 0 {
		_, err := sched.DistForStatic(rt, loop, dist, sched.League{Teams: teams, Threads: threads})
		return err
	}
	league, lctx := errgroup.WithContext(ctx)
	for team := uint32(0); team < teams; team++ {
		league.Go(func() error {
			g, gctx := errgroup.WithContext(lctx)
			for thread := uint32(0); thread < threads; thread++ {
				g.Go(func() error {
					lg := sched.League{Team: team, Teams: teams, Thread: thread, Threads: threads}
					res, err := sched.DistForStatic(rt, loop, dist, lg)
					if err != nil {
						return err
					}
					w := Worker{Team: team, Thread: thread, Last: res.Last}
					return run(gctx, w, res.Partition, loop.Kind == sched.Chunked, loop, res.UpperDist, body)
				})
			}
			return g.Wait()
		})
	}
	return league.Wait()
}

// Teams runs loop with one worker per team, dealing chunks of loop.Chunk
// iterations round-robin.
func Teams[T sched.Index, S sched.Signed](ctx context.Context, rt *sched.Runtime, loop sched.Loop[T, S], teams uint32, body Body[T]) error {
	if teams == 0 {
		_, err := sched.TeamStatic(rt, loop, sched.League{})
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for team := uint32(0); team < teams; team++ {
		g.Go(func() error {
			p, err := sched.TeamStatic(rt, loop, sched.League{Team: team, Teams: teams})
			if err != nil {
				return err
			}
			w := Worker{Team: team, Last: p.Last}
			return run(gctx, w, p, true, loop, loop.Space.Upper, body)
		})
	}
	return g.Wait()
}

func run[T sched.Index, S sched.Signed](ctx context.Context, w Worker, p sched.Partition[T, S], chunked bool, loop sched.Loop[T, S], limit T, body Body[T]) error {
	for lo, hi := range plan.Rounds(p, chunked, loop.Chunk, limit, loop.Space.Incr) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := body(ctx, w, lo, hi); err != nil {
			return fmt.Errorf("%s: block [%d, %d]: %w", w, lo, hi, err)
		}
	}
	return nil
}

// Each adapts a per-iteration function to a Body stepping by incr.
func Each[T sched.Index, S sched.Signed](incr S, fn func(w Worker, i T) error) Body[T] {
	d := sched.DomainOf[T]()
	step := uint64(incr)
	if incr < 0 {
		step = uint64(-int64(incr))
	}
	return func(ctx context.Context, w Worker, lo, hi T) error {
		for i := lo; ; i += T(incr) {
			if err := fn(w, i); err != nil {
				return err
			}
			var rem uint64
			if incr > 0 {
				rem = uint64(hi-i) & d.Mask()
			} else {
				rem = uint64(i-hi) & d.Mask()
			}
			if step == 0 || rem < step {
				return nil
			}
		}
	}
}
