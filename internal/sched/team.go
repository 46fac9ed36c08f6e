package sched

// TeamStatic returns the first chunk owned by team lg.Team under a
// dist_schedule(static, chunk) distribute loop, and the stride to the
// team's next chunk. Thread coordinates are ignored and loop.Kind is not
// consulted; the team policy is always Chunked.
//
// Unlike ForStatic, the returned Upper is clamped to the loop's upper
// bound, going through the domain sentinel first when the chunk end wraps.
func TeamStatic[T Index, S Signed](rt *Runtime, loop Loop[T, S], lg League) (Partition[T, S], error) {
	d := domainFor[T, S]()
	loop.Kind = Chunked

	sp := loop.Space
	loop.enter(rt, OpTeamStatic)

	if err := lg.validate(OpTeamStatic, loop.Loc, false); err != nil {
		return Partition[T, S]{}, err
	}
	if rt.checking() {
		if sp.Incr == 0 {
			return Partition[T, S]{}, newZeroIncrementError(OpTeamStatic, loop.Loc)
		}
		if sp.Empty() {
			return Partition[T, S]{}, newIllegalBoundsError(OpTeamStatic, loop.Loc, sp)
		}
	}
	if sp.Empty() {
		p := Partition[T, S]{Lower: sp.Lower, Upper: sp.Upper, Stride: sp.Incr, Empty: true}
		loop.exit(rt, OpTeamStatic, PhaseZeroTrip, p)
		return p, nil
	}

	trip := tripCount(d, sp.Lower, sp.Upper, sp.Incr)
	if rt.checking() && trip == 0 && sp.Upper != sp.Lower {
		return Partition[T, S]{}, newRangeTooLargeError(OpTeamStatic, loop.Loc, sp)
	}
	if lg.Team == 0 {
		rt.record(loop.metadata(OpTeamStatic, loop.Kind, trip, lg.Teams))
	}

	chunk := loop.Chunk
	if chunk < 1 {
		chunk = 1
	}
	span := chunk * sp.Incr
	team, nteams := uint64(lg.Team), uint64(lg.Teams)
	rounds := d.count(trip-1) / uint64(chunk)

	p := Partition[T, S]{
		Stride: span * S(lg.Teams),
		Last:   team == rounds%nteams,
	}
	if team > rounds {
		p.Lower, p.Upper = emptyBlock(sp.Upper, sp.Incr)
		p.Empty = true
		loop.exit(rt, OpTeamStatic, PhaseExit, p)
		return p, nil
	}

	p.Lower = sp.Lower + T(span)*T(team)
	p.Upper = p.Lower + T(span) - T(sp.Incr)
	if sp.Incr > 0 {
		if p.Upper < p.Lower {
			p.Upper = d.Max
		}
		if p.Upper > sp.Upper {
			p.Upper = sp.Upper
		}
	} else {
		if p.Upper > p.Lower {
			p.Upper = d.Min
		}
		if p.Upper < sp.Upper {
			p.Upper = sp.Upper
		}
	}

	loop.exit(rt, OpTeamStatic, PhaseExit, p)
	return p, nil
}
