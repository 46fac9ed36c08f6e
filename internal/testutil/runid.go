package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDGenerator returns predetermined run ids for testing.
//
// With ids given, Generate returns them in order and panics once they are
// exhausted, which catches a test that records more runs than expected.
// With no ids, it counts: "run-0001", "run-0002", ...
//
// Thread-safety: FixedRunIDGenerator is safe for concurrent use via internal mutex.
type FixedRunIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDGenerator creates a generator that returns ids in order.
func NewFixedRunIDGenerator(ids ...string) *FixedRunIDGenerator {
	return &FixedRunIDGenerator{ids: ids}
}

// Generate returns the next run id.
//
// Implements store.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if len(g.ids) == 0 {
		return fmt.Sprintf("run-%04d", g.idx)
	}
	if g.idx > len(g.ids) {
		panic("FixedRunIDGenerator: all ids exhausted")
	}
	return g.ids[g.idx-1]
}
