package workshare

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/loopsched/internal/sched"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// tally records which worker ran each iteration.
type tally[T comparable] struct {
	mu   sync.Mutex
	seen map[T]Worker
	dups []T
	last []Worker
}

func newTally[T comparable]() *tally[T] {
	return &tally[T]{seen: make(map[T]Worker)}
}

func (tl *tally[T]) record(w Worker, i T) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if _, ok := tl.seen[i]; ok {
		tl.dups = append(tl.dups, i)
	}
	tl.seen[i] = w
	return nil
}

func TestFor_RunsEveryIterationOnce(t *testing.T) {
	for _, kind := range []sched.Kind{sched.Greedy, sched.Balanced, sched.Chunked} {
		t.Run(kind.String(), func(t *testing.T) {
			loop := sched.Loop[int32, int32]{Kind: kind, Chunk: 3, Space: sched.Space32{Lower: -40, Upper: 61, Incr: 3}}
			tl := newTally[int32]()

			err := For(context.Background(), &sched.Runtime{Check: true}, loop, 5, Each(loop.Space.Incr, tl.record))
			require.NoError(t, err)

			assert.Empty(t, tl.dups)
			assert.Len(t, tl.seen, int(loop.Space.TripCount()))
			assert.True(t, tl.seen[59].Last, "worker running the final iteration must be last")
		})
	}
}

func TestFor_SumMatchesClosedForm(t *testing.T) {
	loop := sched.Loop[uint64, int64]{Kind: sched.Chunked, Chunk: 7, Space: sched.Space64U{Lower: 1, Upper: 1000, Incr: 1}}
	var sum atomic.Uint64

	err := For(context.Background(), nil, loop, 8, Each(loop.Space.Incr, func(_ Worker, i uint64) error {
		sum.Add(i)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000*1001/2), sum.Load())
}

func TestFor_NearDomainMax(t *testing.T) {
	mx := uint32(math.MaxUint32)
	loop := sched.Loop[uint32, int32]{Kind: sched.Greedy, Space: sched.Space32U{Lower: mx - 20, Upper: mx, Incr: 2}}
	tl := newTally[uint32]()

	require.NoError(t, For(context.Background(), nil, loop, 4, Each(loop.Space.Incr, tl.record)))
	assert.Empty(t, tl.dups)
	assert.Len(t, tl.seen, 11)
	assert.Contains(t, tl.seen, mx-20)
	assert.Contains(t, tl.seen, mx)
}

func TestFor_LastPrivate(t *testing.T) {
	loop := sched.Loop[int64, int64]{Kind: sched.Balanced, Space: sched.Space64{Lower: 0, Upper: 99, Incr: 1}}
	var (
		mu   sync.Mutex
		last []int64
	)
	body := func(_ context.Context, w Worker, lo, hi int64) error {
		if w.Last {
			mu.Lock()
			last = append(last, hi)
			mu.Unlock()
		}
		return nil
	}

	require.NoError(t, For(context.Background(), nil, loop, 6, body))
	assert.Equal(t, []int64{99}, last)
}

func TestFor_BodyErrorCancelsOthers(t *testing.T) {
	loop := sched.Loop[int32, int32]{Kind: sched.Chunked, Chunk: 1, Space: sched.Space32{Lower: 0, Upper: 9999, Incr: 1}}
	boom := errors.New("boom")

	err := For(context.Background(), nil, loop, 4, func(ctx context.Context, w Worker, lo, hi int32) error {
		if lo == 42 {
			return boom
		}
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "team 0 thread 2: block [42, 42]")
}

func TestFor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	loop := sched.Loop[int32, int32]{Kind: sched.Greedy, Space: sched.Space32{Lower: 0, Upper: 9, Incr: 1}}
	err := For(ctx, nil, loop, 2, func(context.Context, Worker, int32, int32) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestFor_SolverError(t *testing.T) {
	loop := sched.Loop[int32, int32]{Kind: sched.Greedy, Space: sched.Space32{Lower: 0, Upper: 9, Incr: 0}}
	err := For(context.Background(), &sched.Runtime{Check: true}, loop, 2, func(context.Context, Worker, int32, int32) error { return nil })
	assert.Equal(t, sched.ErrCodeZeroIncrement, sched.CodeOf(err))

	err = For(context.Background(), nil, loop, 0, func(context.Context, Worker, int32, int32) error { return nil })
	assert.Equal(t, sched.ErrCodeIllegalExecutor, sched.CodeOf(err))
}

func TestDistribute_League(t *testing.T) {
	for _, dist := range []sched.Kind{sched.Greedy, sched.Balanced} {
		for _, kind := range []sched.Kind{sched.Greedy, sched.Balanced, sched.Chunked} {
			t.Run(dist.String()+"/"+kind.String(), func(t *testing.T) {
				loop := sched.Loop[int64, int64]{Kind: kind, Chunk: 2, Space: sched.Space64{Lower: 500, Upper: -500, Incr: -7}}
				tl := newTally[int64]()

				err := Distribute(context.Background(), &sched.Runtime{Check: true}, loop, dist, 3, 4, Each(loop.Space.Incr, tl.record))
				require.NoError(t, err)

				assert.Empty(t, tl.dups)
				assert.Len(t, tl.seen, int(loop.Space.TripCount()))
				lastValue := int64(500 - 7*int64(loop.Space.TripCount()-1))
				assert.True(t, tl.seen[lastValue].Last)
				for v, w := range tl.seen {
					if v != lastValue {
						assert.False(t, w.Last && tl.seen[lastValue] != w, "worker %s flagged last", w)
					}
				}
			})
		}
	}
}

func TestDistribute_FewIterations(t *testing.T) {
	loop := sched.Loop[int32, int32]{Kind: sched.Balanced, Space: sched.Space32{Lower: 0, Upper: 2, Incr: 1}}
	tl := newTally[int32]()

	require.NoError(t, Distribute(context.Background(), nil, loop, sched.Balanced, 8, 4, Each(loop.Space.Incr, tl.record)))
	require.Len(t, tl.seen, 3)
	for v, w := range tl.seen {
		assert.Equal(t, uint32(v), w.Team)
		assert.Equal(t, uint32(0), w.Thread)
	}
	assert.True(t, tl.seen[2].Last)
}

func TestTeams_Chunks(t *testing.T) {
	loop := sched.Loop[uint32, int32]{Chunk: 4, Space: sched.Space32U{Lower: 0, Upper: 37, Incr: 1}}
	tl := newTally[uint32]()

	require.NoError(t, Teams(context.Background(), nil, loop, 3, Each(loop.Space.Incr, tl.record)))
	assert.Empty(t, tl.dups)
	assert.Len(t, tl.seen, 38)
	// Chunk k of 4 iterations goes to team k%3.
	for v, w := range tl.seen {
		assert.Equal(t, (v/4)%3, w.Team, "iteration %d", v)
	}
	assert.True(t, tl.seen[37].Last)
}

func TestEach_StopsAtUpperOffLattice(t *testing.T) {
	var got []int32
	body := Each[int32, int32](3, func(_ Worker, i int32) error {
		got = append(got, i)
		return nil
	})
	require.NoError(t, body(context.Background(), Worker{}, 0, 10))
	assert.Equal(t, []int32{0, 3, 6, 9}, got)

	got = nil
	require.NoError(t, Each[int32, int32](1, func(_ Worker, i int32) error {
		got = append(got, i)
		return nil
	})(context.Background(), Worker{}, math.MaxInt32-1, math.MaxInt32))
	assert.Equal(t, []int32{math.MaxInt32 - 1, math.MaxInt32}, got)
}
