package sched

import (
	"fmt"
	"math"
)

// Index is the set of loop-variable types the solvers partition.
type Index interface {
	int32 | uint32 | int64 | uint64
}

// Signed is the set of increment, chunk and stride types. A loop over T
// uses the Signed type of the same width.
type Signed interface {
	int32 | int64
}

// Domain describes the limits of a loop-variable type.
//
// Max and Min are the overflow sentinels the greedy and team solvers clamp
// to. Trip counts are kept in a uint64 masked to Bits, which behaves like
// the unsigned counter type of the domain's width.
type Domain[T Index] struct {
	Name   string
	Bits   uint
	Signed bool
	Max    T
	Min    T
}

// DomainOf returns the Domain of T.
func DomainOf[T Index]() Domain[T] {
	var zero T
	switch any(zero).(type) {
	case int32:
		mx, mn := int32(math.MaxInt32), int32(math.MinInt32)
		return Domain[T]{Name: "int32", Bits: 32, Signed: true, Max: T(mx), Min: T(mn)}
	case uint32:
		mx := uint32(math.MaxUint32)
		return Domain[T]{Name: "uint32", Bits: 32, Max: T(mx)}
	case int64:
		mx, mn := int64(math.MaxInt64), int64(math.MinInt64)
		return Domain[T]{Name: "int64", Bits: 64, Signed: true, Max: T(mx), Min: T(mn)}
	default:
		mx := uint64(math.MaxUint64)
		return Domain[T]{Name: "uint64", Bits: 64, Max: T(mx)}
	}
}

// Mask returns the bit mask of the domain's unsigned counter.
func (d Domain[T]) Mask() uint64 {
	if d.Bits >= 64 {
		return math.MaxUint64
	}
	return 1<<d.Bits - 1
}

// count truncates x to the width of the domain's unsigned counter.
func (d Domain[T]) count(x uint64) uint64 {
	return x & d.Mask()
}

func signedBits[S Signed]() uint {
	var zero S
	if _, ok := any(zero).(int32); ok {
		return 32
	}
	return 64
}

// domainFor returns the Domain of T and panics when S does not match its
// width. Mixing widths is a compile-time decision of the caller, so it is
// reported like an unknown schedule kind rather than as a runtime error.
func domainFor[T Index, S Signed]() Domain[T] {
	d := DomainOf[T]()
	if sb := signedBits[S](); sb != d.Bits {
		panic(&ConsistencyError{
			Code:    ErrCodeDomainMismatch,
			Message: fmt.Sprintf("%d-bit increment type used with %s loop variable", sb, d.Name),
		})
	}
	return d
}

// Convenience aliases for the four supported domains.
type (
	Space32  = IterationSpace[int32, int32]
	Space32U = IterationSpace[uint32, int32]
	Space64  = IterationSpace[int64, int64]
	Space64U = IterationSpace[uint64, int64]
)
