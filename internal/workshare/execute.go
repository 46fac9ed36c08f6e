package workshare

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/loopsched/internal/plan"
	"github.com/roach88/loopsched/internal/sched"
)

// Tally counts what the workers of one execution ran.
type Tally struct {
	// Workers maps each worker that ran at least one block to its
	// iteration count.
	Workers    map[Worker]uint64
	Iterations uint64
	Blocks     uint64
}

// LastOwners returns the workers flagged as owning the last iteration.
func (t *Tally) LastOwners() []Worker {
	var owners []Worker
	for w := range t.Workers {
		if w.Last {
			owners = append(owners, w)
		}
	}
	return owners
}

// Execute runs req on goroutines with a body that counts iterations
// block by block instead of visiting them.
func Execute(ctx context.Context, rt *sched.Runtime, req plan.Request) (*Tally, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch req.Domain {
	case plan.Int32:
		return execute[int32, int32](ctx, rt, req)
	case plan.Uint32:
		return execute[uint32, int32](ctx, rt, req)
	case plan.Int64:
		return execute[int64, int64](ctx, rt, req)
	default:
		return execute[uint64, int64](ctx, rt, req)
	}
}

func execute[T sched.Index, S sched.Signed](ctx context.Context, rt *sched.Runtime, req plan.Request) (*Tally, error) {
	loop, err := plan.LoopOf[T, S](req)
	if err != nil {
		return nil, err
	}
	d := sched.DomainOf[T]()
	incr := loop.Space.Incr

	var mu sync.Mutex
	t := &Tally{Workers: make(map[Worker]uint64)}
	body := func(_ context.Context, w Worker, lo, hi T) error {
		var n uint64
		if incr > 0 {
			n = (uint64(hi-lo)&d.Mask())/uint64(incr) + 1
		} else {
			n = (uint64(lo-hi)&d.Mask())/uint64(-int64(incr)) + 1
		}
		mu.Lock()
		defer mu.Unlock()
		t.Workers[w] += n
		t.Iterations += n
		t.Blocks++
		return nil
	}

	switch req.Op {
	case plan.OpFor:
		err = For(ctx, rt, loop, req.Executors, body)
	case plan.OpDist:
		err = Distribute(ctx, rt, loop, req.Dist, req.Teams, req.Threads, body)
	case plan.OpTeam:
		err = Teams(ctx, rt, loop, req.Teams, body)
	default:
		err = fmt.Errorf("unknown op %q", req.Op)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
