package sched

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamChunks[T Index, S Signed](t *testing.T, loop Loop[T, S], teams uint32) []Partition[T, S] {
	t.Helper()
	out := make([]Partition[T, S], teams)
	for i := uint32(0); i < teams; i++ {
		p, err := TeamStatic(&Runtime{Check: true}, loop, League{Team: i, Teams: teams})
		require.NoError(t, err)
		out[i] = p
	}
	return out
}

func TestTeamStatic_RoundRobinChunks(t *testing.T) {
	ps := teamChunks(t, loop32(Greedy, 2, 0, 19, 1), 3)

	want := [][2]int32{{0, 1}, {2, 3}, {4, 5}}
	for i, p := range ps {
		assert.Equal(t, want[i], [2]int32{p.Lower, p.Upper})
		assert.Equal(t, int32(6), p.Stride)
	}
	// ((20-1)/2) % 3 == 0
	assert.True(t, ps[0].Last)
	assert.False(t, ps[1].Last)
	assert.False(t, ps[2].Last)
}

func TestTeamStatic_ClampsToUpper(t *testing.T) {
	ps := teamChunks(t, loop32(Balanced, 4, 0, 4, 1), 2)

	assert.Equal(t, [2]int32{0, 3}, [2]int32{ps[0].Lower, ps[0].Upper})
	assert.Equal(t, [2]int32{4, 4}, [2]int32{ps[1].Lower, ps[1].Upper})
	assert.True(t, ps[1].Last)
}

func TestTeamStatic_ClampsThroughSentinel(t *testing.T) {
	mx := int32(math.MaxInt32)
	ps := teamChunks(t, loop32(Chunked, 4, mx-5, mx, 1), 2)

	assert.Equal(t, [2]int32{mx - 5, mx - 2}, [2]int32{ps[0].Lower, ps[0].Upper})
	assert.Equal(t, [2]int32{mx - 1, mx}, [2]int32{ps[1].Lower, ps[1].Upper})
	assert.True(t, ps[1].Last)
}

func TestTeamStatic_NegativeIncrementClampsAtMin(t *testing.T) {
	loop := Loop[uint32, int32]{Chunk: 3, Space: Space32U{Lower: 4, Upper: 0, Incr: -1}}
	ps := teamChunks(t, loop, 2)

	assert.Equal(t, [2]uint32{4, 2}, [2]uint32{ps[0].Lower, ps[0].Upper})
	assert.Equal(t, [2]uint32{1, 0}, [2]uint32{ps[1].Lower, ps[1].Upper})
	assert.Equal(t, int32(-6), ps[0].Stride)
	assert.True(t, ps[1].Last)
}

func TestTeamStatic_IdleTeam(t *testing.T) {
	ps := teamChunks(t, loop32(Greedy, 2, 0, 2, 1), 3)

	assert.False(t, ps[0].Empty)
	assert.True(t, ps[1].Last)
	assert.True(t, ps[2].Empty)
	assert.False(t, ps[2].Last)
	assert.Equal(t, int32(3), ps[2].Lower)
	assert.Equal(t, int32(2), ps[2].Upper)
}

func TestTeamStatic_IgnoresThreadAndKind(t *testing.T) {
	a, err := TeamStatic(nil, loop32(Greedy, 3, 0, 50, 1), League{Team: 1, Teams: 4})
	require.NoError(t, err)
	b, err := TeamStatic(nil, loop32(Balanced, 3, 0, 50, 1), League{Team: 1, Teams: 4, Thread: 9})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTeamStatic_ConsistencyErrors(t *testing.T) {
	rt := &Runtime{Check: true}

	_, err := TeamStatic(rt, loop32(Greedy, 2, 0, 9, 0), League{Teams: 2})
	assert.Equal(t, ErrCodeZeroIncrement, CodeOf(err))

	_, err = TeamStatic(rt, loop32(Greedy, 2, 9, 0, 1), League{Teams: 2})
	assert.Equal(t, ErrCodeIllegalBounds, CodeOf(err))

	_, err = TeamStatic(rt, loop32(Greedy, 2, 0, 9, 1), League{Team: 2, Teams: 2})
	assert.Equal(t, ErrCodeIllegalExecutor, CodeOf(err))

	p, err := TeamStatic(nil, loop32(Greedy, 2, 9, 0, 1), League{Teams: 2})
	require.NoError(t, err)
	assert.True(t, p.Empty)
	assert.Equal(t, int32(9), p.Lower)
	assert.Equal(t, int32(0), p.Upper)
}

func TestTeamStatic_Coverage(t *testing.T) {
	mx := int64(math.MaxInt64)
	spaces := []Space64{
		{Lower: 0, Upper: 99, Incr: 1},
		{Lower: 99, Upper: 0, Incr: -7},
		{Lower: mx - 30, Upper: mx, Incr: 3},
		{Lower: 5, Upper: 5, Incr: 1},
	}
	for _, sp := range spaces {
		for _, chunk := range []int64{1, 4, 10} {
			for _, teams := range []uint32{1, 3, 8} {
				t.Run(fmt.Sprintf("%s/chunk=%d/teams=%d", sp, chunk, teams), func(t *testing.T) {
					loop := Loop[int64, int64]{Chunk: chunk, Space: sp}
					want := walk(sp.Lower, sp.Upper, sp.Incr)
					var got []int64
					lasts := 0
					for i, p := range teamChunks(t, loop, teams) {
						ran := execute(p, Chunked, chunk, sp.Upper, sp.Incr)
						if p.Last {
							lasts++
							require.Contains(t, ran, want[len(want)-1], "team %d", i)
						}
						got = append(got, ran...)
					}
					require.Len(t, got, len(want))
					require.ElementsMatch(t, want, got)
					require.Equal(t, 1, lasts)
				})
			}
		}
	}
}
