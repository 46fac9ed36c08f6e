package plan

import (
	"fmt"
	"slices"
	"strings"
)

// CoverageError lists every invariant a plan violates.
type CoverageError struct {
	Problems []string
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("coverage check failed: %s", strings.Join(e.Problems, "; "))
}

// Verify checks that the plan's blocks run every iteration exactly once
// and that exactly one executor owns the last iteration, and that this
// executor actually runs it. A zero-trip plan must have no blocks and no
// owner.
func Verify(p *Plan) error {
	type span struct {
		first, count uint64
		who          string
	}
	var (
		problems []string
		spans    []span
		owners   []string
		lastRun  string
	)
	trip := p.TripCount

	for _, a := range p.Assignments {
		who := fmt.Sprintf("team %d thread %d", a.Team, a.Thread)
		if p.Request.Op == OpFor {
			who = fmt.Sprintf("executor %d", a.Thread)
		}
		if a.Last {
			owners = append(owners, who)
		}
		if a.Empty && len(a.Blocks) > 0 {
			problems = append(problems, who+" is empty but runs iterations")
		}
		for _, b := range a.Blocks {
			spans = append(spans, span{first: b.First, count: b.Count, who: who})
			if trip > 0 && b.First <= trip-1 && trip-1 < b.First+b.Count {
				lastRun = who
			}
		}
	}

	slices.SortFunc(spans, func(x, y span) int {
		switch {
		case x.first < y.first:
			return -1
		case x.first > y.first:
			return 1
		}
		return 0
	})
	var next uint64
	for _, s := range spans {
		switch {
		case s.first > next:
			problems = append(problems, fmt.Sprintf("iterations %d..%d run by no executor", next, s.first-1))
		case s.first < next:
			problems = append(problems, fmt.Sprintf("%s repeats iteration %d", s.who, s.first))
		}
		if end := s.first + s.count; end > next {
			next = end
		}
	}
	if next < trip {
		problems = append(problems, fmt.Sprintf("iterations %d..%d run by no executor", next, trip-1))
	}
	if next > trip {
		problems = append(problems, fmt.Sprintf("blocks run %d iterations, space has %d", next, trip))
	}

	switch {
	case trip == 0 && len(owners) > 0:
		problems = append(problems, fmt.Sprintf("zero-trip loop has last-iteration owners %v", owners))
	case trip > 0 && len(owners) != 1:
		problems = append(problems, fmt.Sprintf("want exactly one last-iteration owner, got %d %v", len(owners), owners))
	case trip > 0 && owners[0] != lastRun:
		problems = append(problems, fmt.Sprintf("%s owns the last iteration but %q runs it", owners[0], lastRun))
	}

	if len(problems) > 0 {
		return &CoverageError{Problems: problems}
	}
	return nil
}
