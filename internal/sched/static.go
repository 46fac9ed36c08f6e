package sched

// ForStatic returns the block of loop iterations owned by executor ex.
//
// A zero-trip space is returned unchanged with Empty set and Stride equal
// to the increment. A serialized team, or a team of one, receives the whole
// space with Last set and a Stride that steps past it. Otherwise the space
// is split according to loop.Kind:
//
//   - Greedy: ceil(trip/n) iterations per executor in index order, the
//     final block clamped to the upper bound.
//   - Balanced: trip/n iterations each, one extra for the first trip%n.
//   - Chunked: the first chunk of a round-robin deal; the caller advances
//     Lower and Upper by Stride until the space is exhausted and clamps
//     Upper to the loop's upper bound.
//
// When there are fewer iterations than executors, executor i < trip runs
// iteration i alone and the rest receive an empty block.
func ForStatic[T Index, S Signed](rt *Runtime, loop Loop[T, S], ex Executor) (Partition[T, S], error) {
	d := domainFor[T, S]()
	mustKnow(OpForStatic, loop.Loc, loop.Kind)

	sp := loop.Space
	loop.enter(rt, OpForStatic)

	if ex.Count == 0 || ex.Index >= ex.Count {
		return Partition[T, S]{}, newIllegalExecutorError(OpForStatic, loop.Loc, "executor", ex.Index, ex.Count)
	}
	if rt.checking() && sp.Incr == 0 {
		return Partition[T, S]{}, newZeroIncrementError(OpForStatic, loop.Loc)
	}

	if sp.Empty() {
		// Bounds stay untouched; the caller's own bounds test skips the body.
		p := Partition[T, S]{Lower: sp.Lower, Upper: sp.Upper, Stride: sp.Incr, Empty: true}
		loop.exit(rt, OpForStatic, PhaseZeroTrip, p)
		return p, nil
	}

	if ex.Serialized || ex.Count == 1 {
		p := Partition[T, S]{
			Lower:  sp.Lower,
			Upper:  sp.Upper,
			Stride: fullStride(sp.Lower, sp.Upper, sp.Incr),
			Last:   true,
		}
		loop.exit(rt, OpForStatic, PhaseSerial, p)
		return p, nil
	}

	trip := tripCount(d, sp.Lower, sp.Upper, sp.Incr)
	if rt.checking() && trip == 0 && sp.Upper != sp.Lower {
		return Partition[T, S]{}, newRangeTooLargeError(OpForStatic, loop.Loc, sp)
	}

	p := partition(d, loop.Kind, loop.Chunk, sp.Lower, sp.Upper, sp.Incr, trip, ex.Index, ex.Count)

	if ex.Index == 0 {
		rt.record(loop.metadata(OpForStatic, loop.Kind, trip, ex.Count))
	}
	loop.exit(rt, OpForStatic, PhaseExit, p)
	return p, nil
}

// partition splits the trip iterations of [lower, upper] among n executors
// and returns the share of executor tid. It has no serial fast path, so
// DistForStatic can reuse it for a team of one.
func partition[T Index, S Signed](d Domain[T], kind Kind, chunk S, lower, upper T, incr S, trip uint64, tid, n uint32) Partition[T, S] {
	t, nth := uint64(tid), uint64(n)
	p := Partition[T, S]{Stride: fullStride(lower, upper, incr)}

	switch kind {
	case Greedy, Balanced:
		if trip < nth {
			if t < trip {
				p.Lower = lower + T(t)*T(incr)
				p.Upper = p.Lower
			} else {
				p.Lower, p.Upper = emptyBlock(upper, incr)
				p.Empty = true
			}
			p.Last = t == d.count(trip-1)
			return p
		}
		if kind == Balanced {
			p.Lower, p.Upper, p.Last = balancedBlock(lower, incr, trip, t, nth)
		} else {
			p.Lower, p.Upper, p.Last, p.Empty = greedyBlock(d, lower, upper, incr, trip, t, nth)
		}
		return p

	case Chunked:
		c := chunk
		if c < 1 {
			c = 1
		}
		span := c * incr
		p.Stride = span * S(n)
		rounds := d.count(trip-1) / uint64(c)
		p.Last = t == rounds%nth
		if t > rounds {
			p.Lower, p.Upper = emptyBlock(upper, incr)
			p.Empty = true
			return p
		}
		p.Lower = lower + T(span)*T(t)
		p.Upper = p.Lower + T(span) - T(incr)
		return p
	}

	panic(&ConsistencyError{Code: ErrCodeUnknownSchedule, Message: "unknown schedule kind " + kind.String()})
}

// balancedBlock returns the balanced block of executor t out of nth.
// Requires trip >= nth.
func balancedBlock[T Index, S Signed](lower T, incr S, trip, t, nth uint64) (lo, hi T, last bool) {
	small := trip / nth
	extras := trip % nth
	lo = lower + T(incr)*T(t*small+min(t, extras))
	hi = lo + T(small)*T(incr)
	if t >= extras {
		hi -= T(incr)
	}
	return lo, hi, t == nth-1
}

// greedyBlock returns the greedy block of executor t out of nth. Requires
// trip >= nth. An upper bound that wraps past the domain limit is pinned to
// the domain sentinel and then to upper. last is decided before clamping:
// the block straddles the final iteration.
func greedyBlock[T Index, S Signed](d Domain[T], lower, upper T, incr S, trip, t, nth uint64) (lo, hi T, last, empty bool) {
	per := ceilDiv(trip, nth)
	if t > (trip-1)/per {
		lo, hi = emptyBlock(upper, incr)
		return lo, hi, false, true
	}

	step := T(per) * T(incr)
	lo = lower + T(t)*step
	hi = lo + step - T(incr)
	if incr > 0 {
		if hi < lo {
			hi = d.Max
		}
		last = lo <= upper && hi > upper-T(incr)
		if hi > upper {
			hi = upper
		}
	} else {
		if hi > lo {
			hi = d.Min
		}
		last = lo >= upper && hi < upper-T(incr)
		if hi < upper {
			hi = upper
		}
	}
	return lo, hi, last, false
}

// emptyBlock returns the bounds reported to an executor with no iterations.
func emptyBlock[T Index, S Signed](upper T, incr S) (T, T) {
	return upper + T(incr), upper
}

// fullStride returns a stride that moves a block past the whole of
// [lower, upper].
func fullStride[T Index, S Signed](lower, upper T, incr S) S {
	if incr > 0 {
		return S(upper - lower + 1)
	}
	return S(-(lower - upper + 1))
}

func (l Loop[T, S]) enter(rt *Runtime, op Op) {
	if !rt.observing() {
		return
	}
	rt.Observer.Observe(Event{
		Op:       op,
		Phase:    PhaseEnter,
		Loc:      l.Loc,
		GlobalID: l.GlobalID,
		Kind:     l.Kind,
		Lower:    l.Space.Lower,
		Upper:    l.Space.Upper,
		Stride:   l.Space.Incr,
	})
}

func (l Loop[T, S]) exit(rt *Runtime, op Op, phase Phase, p Partition[T, S]) {
	if rt.observing() {
		rt.Observer.Observe(l.exitEvent(op, phase, p, nil))
	}
}

// exitDist is exit with the team bound; UpperDist is boxed only when
// someone observes.
func (l Loop[T, S]) exitDist(rt *Runtime, phase Phase, res DistPartition[T, S]) {
	if rt.observing() {
		rt.Observer.Observe(l.exitEvent(OpDistForStatic, phase, res.Partition, res.UpperDist))
	}
}

func (l Loop[T, S]) exitEvent(op Op, phase Phase, p Partition[T, S], upperDist any) Event {
	return Event{
		Op:        op,
		Phase:     phase,
		Loc:       l.Loc,
		GlobalID:  l.GlobalID,
		Kind:      l.Kind,
		Lower:     p.Lower,
		Upper:     p.Upper,
		UpperDist: upperDist,
		Stride:    p.Stride,
		Last:      p.Last,
	}
}

func (l Loop[T, S]) metadata(op Op, kind Kind, trip uint64, n uint32) Metadata {
	m := Metadata{
		Op:        op,
		Loc:       l.Loc,
		Kind:      kind,
		TripCount: trip,
		Executors: n,
	}
	if kind == Chunked {
		m.Chunk = 1
		if l.Chunk > 1 {
			m.Chunk = uint64(l.Chunk)
		}
	} else {
		m.Chunk = ceilDiv(trip, uint64(n))
	}
	return m
}
