package sched

// DistForStatic returns the block owned by thread lg.Thread of team
// lg.Team in a distribute parallel loop.
//
// The space is first split across teams with the dist policy (Greedy or
// Balanced); the team block ends at UpperDist. The team block is then split
// across the team's threads with loop.Kind, exactly as ForStatic would.
// When the loop has no more iterations than there are teams, only thread 0
// of teams below the trip count runs, one iteration each.
//
// Last is set only for the thread that owns the last iteration of the last
// team block.
func DistForStatic[T Index, S Signed](rt *Runtime, loop Loop[T, S], dist Kind, lg League) (DistPartition[T, S], error) {
	d := domainFor[T, S]()
	mustKnow(OpDistForStatic, loop.Loc, loop.Kind)
	if dist != Greedy && dist != Balanced {
		panic(&ConsistencyError{
			Code:    ErrCodeUnknownSchedule,
			Op:      OpDistForStatic,
			Loc:     loop.Loc,
			Message: "distribute schedule must be greedy or balanced, got " + dist.String(),
		})
	}

	sp := loop.Space
	loop.enter(rt, OpDistForStatic)

	if err := lg.validate(OpDistForStatic, loop.Loc, true); err != nil {
		return DistPartition[T, S]{}, err
	}
	if rt.checking() {
		if sp.Incr == 0 {
			return DistPartition[T, S]{}, newZeroIncrementError(OpDistForStatic, loop.Loc)
		}
		if sp.Empty() {
			return DistPartition[T, S]{}, newIllegalBoundsError(OpDistForStatic, loop.Loc, sp)
		}
	}

	res := DistPartition[T, S]{Partition: Partition[T, S]{Stride: fullStride(sp.Lower, sp.Upper, sp.Incr)}}

	if sp.Empty() {
		res.Lower, res.Upper, res.UpperDist = sp.Lower, sp.Upper, sp.Upper
		res.Stride = sp.Incr
		res.Empty = true
		loop.exitDist(rt, PhaseZeroTrip, res)
		return res, nil
	}

	trip := tripCount(d, sp.Lower, sp.Upper, sp.Incr)
	if rt.checking() && trip == 0 && sp.Upper != sp.Lower {
		return DistPartition[T, S]{}, newRangeTooLargeError(OpDistForStatic, loop.Loc, sp)
	}
	if lg.Team == 0 && lg.Thread == 0 {
		rt.record(loop.metadata(OpDistForStatic, dist, trip, lg.Teams))
	}

	team, nteams := uint64(lg.Team), uint64(lg.Teams)
	if trip <= nteams {
		// Only thread 0 of the first trip teams gets an iteration.
		if team < trip && lg.Thread == 0 {
			v := sp.Lower + T(team)*T(sp.Incr)
			res.Lower, res.Upper, res.UpperDist = v, v, v
		} else {
			res.Lower, res.Upper = emptyBlock(sp.Upper, sp.Incr)
			res.UpperDist = sp.Upper
			res.Empty = true
		}
		res.Last = lg.Thread == 0 && team == d.count(trip-1)
		loop.exitDist(rt, PhaseExit, res)
		return res, nil
	}

	var (
		teamLo, teamHi T
		teamLast       bool
	)
	if dist == Balanced {
		teamLo, teamHi, teamLast = balancedBlock(sp.Lower, sp.Incr, trip, team, nteams)
	} else {
		var empty bool
		teamLo, teamHi, teamLast, empty = greedyBlock(d, sp.Lower, sp.Upper, sp.Incr, trip, team, nteams)
		if empty {
			// No iterations for this team; its threads skip partitioning.
			res.Lower, res.Upper = teamLo, teamHi
			res.UpperDist = teamHi
			res.Empty = true
			loop.exitDist(rt, PhaseExit, res)
			return res, nil
		}
	}

	local := tripCount(d, teamLo, teamHi, sp.Incr)
	p := partition(d, loop.Kind, loop.Chunk, teamLo, teamHi, sp.Incr, local, lg.Thread, lg.Threads)
	p.Last = p.Last && teamLast

	res.Partition = p
	res.UpperDist = teamHi
	loop.exitDist(rt, PhaseExit, res)
	return res, nil
}

// validate checks the team coordinates, and the thread coordinates when
// threads is set.
func (lg League) validate(op Op, loc Location, threads bool) error {
	if lg.Teams == 0 || lg.Team >= lg.Teams {
		return newIllegalExecutorError(op, loc, "team", lg.Team, lg.Teams)
	}
	if threads && (lg.Threads == 0 || lg.Thread >= lg.Threads) {
		return newIllegalExecutorError(op, loc, "thread", lg.Thread, lg.Threads)
	}
	return nil
}
