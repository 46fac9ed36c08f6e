package plan

import (
	"iter"

	"github.com/roach88/loopsched/internal/sched"
)

// Rounds yields the blocks a caller runs for partition p: one block for
// Greedy and Balanced results, and one per round for chunked results,
// advancing by p.Stride until the block start passes limit. Upper bounds
// are clamped to limit, including ends that wrap at the domain limit.
//
// limit is the loop's upper bound, or UpperDist for a distribute result.
func Rounds[T sched.Index, S sched.Signed](p sched.Partition[T, S], chunked bool, chunk S, limit T, incr S) iter.Seq2[T, T] {
	return func(yield func(T, T) bool) {
		if p.Empty || incr == 0 {
			return
		}
		if chunk < 1 {
			chunk = 1
		}
		span := T(chunk * incr)

		lo, hi := p.Lower, p.Upper
		for {
			if past(lo, limit, incr) {
				return
			}
			if incr > 0 && (hi > limit || hi < lo) {
				hi = limit
			}
			if incr < 0 && (hi < limit || hi > lo) {
				hi = limit
			}
			if !yield(lo, hi) || !chunked {
				return
			}
			next := lo + T(p.Stride)
			if (incr > 0 && next < lo) || (incr < 0 && next > lo) {
				return
			}
			lo = next
			hi = lo + span - T(incr)
		}
	}
}

// past reports whether v lies beyond limit in the direction of incr.
func past[T sched.Index, S sched.Signed](v, limit T, incr S) bool {
	if incr > 0 {
		return v > limit
	}
	return v < limit
}

// ordinal returns the position of v in the space starting at lower.
func ordinal[T sched.Index, S sched.Signed](d sched.Domain[T], lower, v T, incr S) uint64 {
	if incr > 0 {
		return (uint64(v-lower) & d.Mask()) / uint64(incr)
	}
	return (uint64(lower-v) & d.Mask()) / uint64(-int64(incr))
}
