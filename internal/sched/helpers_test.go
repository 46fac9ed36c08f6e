package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// walk returns every value of [lower, limit] stepped by incr, stopping
// before the value would wrap.
func walk[T Index, S Signed](lower, limit T, incr S) []T {
	var out []T
	for v := lower; ; {
		if (incr > 0 && v > limit) || (incr < 0 && v < limit) {
			return out
		}
		out = append(out, v)
		next := v + T(incr)
		if (incr > 0 && next < v) || (incr < 0 && next > v) {
			return out
		}
		v = next
	}
}

// execute runs a partition the way generated loop code does: the body runs
// from Lower to min(Upper, limit), and chunked schedules advance both bounds
// by Stride until Lower passes limit.
func execute[T Index, S Signed](p Partition[T, S], kind Kind, chunk S, limit T, incr S) []T {
	if p.Empty {
		return nil
	}
	if chunk < 1 {
		chunk = 1
	}
	span := T(chunk * incr)

	var out []T
	lo, hi := p.Lower, p.Upper
	for {
		if incr > 0 && (hi > limit || hi < lo) {
			hi = limit
		}
		if incr < 0 && (hi < limit || hi > lo) {
			hi = limit
		}
		out = append(out, walk(lo, hi, incr)...)
		if kind != Chunked {
			return out
		}
		next := lo + T(p.Stride)
		if incr > 0 && (next < lo || next > limit) {
			return out
		}
		if incr < 0 && (next > lo || next < limit) {
			return out
		}
		lo = next
		hi = lo + span - T(incr)
	}
}

// requireCoverage runs ForStatic for every executor and checks that the
// executed iterations reconstruct the space exactly once, with exactly one
// last-iteration owner.
func requireCoverage[T Index, S Signed](t *testing.T, loop Loop[T, S], n uint32) {
	t.Helper()

	want := walk(loop.Space.Lower, loop.Space.Upper, loop.Space.Incr)
	seen := make(map[T]uint32)
	var got []T
	lasts := 0
	for i := uint32(0); i < n; i++ {
		p, err := ForStatic(&Runtime{Check: true}, loop, Executor{Index: i, Count: n})
		require.NoError(t, err)
		if p.Last {
			lasts++
			if len(want) > 0 && !p.Empty {
				ran := execute(p, loop.Kind, loop.Chunk, loop.Space.Upper, loop.Space.Incr)
				require.Contains(t, ran, want[len(want)-1], "executor %d flagged last without the last iteration", i)
			}
		}
		for _, v := range execute(p, loop.Kind, loop.Chunk, loop.Space.Upper, loop.Space.Incr) {
			if prev, dup := seen[v]; dup {
				t.Fatalf("iteration %d run by executors %d and %d", v, prev, i)
			}
			seen[v] = i
			got = append(got, v)
		}
	}
	require.ElementsMatch(t, want, got)
	if len(want) == 0 {
		require.Zero(t, lasts)
	} else {
		require.Equal(t, 1, lasts, "exactly one executor must own the last iteration")
	}
}
