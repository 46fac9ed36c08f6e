package sched

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes consistency errors.
type ErrorCode string

const (
	// ErrCodeZeroIncrement indicates a loop with increment 0.
	ErrCodeZeroIncrement ErrorCode = "ZERO_INCREMENT"

	// ErrCodeIllegalBounds indicates bounds whose direction disagrees with
	// the sign of the increment, where that is not a zero-trip idiom.
	ErrCodeIllegalBounds ErrorCode = "ILLEGAL_BOUNDS"

	// ErrCodeRangeTooLarge indicates a trip count that does not fit the
	// domain's unsigned counter.
	ErrCodeRangeTooLarge ErrorCode = "RANGE_TOO_LARGE"

	// ErrCodeIllegalExecutor indicates an executor index outside its count,
	// or a zero count.
	ErrCodeIllegalExecutor ErrorCode = "ILLEGAL_EXECUTOR"

	// ErrCodeUnknownSchedule indicates a schedule kind with no algorithm.
	ErrCodeUnknownSchedule ErrorCode = "UNKNOWN_SCHEDULE"

	// ErrCodeDomainMismatch indicates an increment type whose width differs
	// from the loop variable's.
	ErrCodeDomainMismatch ErrorCode = "DOMAIN_MISMATCH"
)

// Op names the solver that produced an error or event.
type Op string

const (
	OpForStatic     Op = "for_static"
	OpDistForStatic Op = "dist_for_static"
	OpTeamStatic    Op = "team_static"
)

// ConsistencyError is returned when a loop fails a consistency check.
// Unknown schedule kinds and domain mismatches are raised as panics
// carrying a *ConsistencyError.
type ConsistencyError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the solver that detected the error.
	Op Op

	// Loc is the loop's source location, if known.
	Loc Location

	// Message is a human-readable description.
	Message string

	// Details contains the offending values.
	Details map[string]string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	if e.Op != "" && e.Loc != "" {
		return fmt.Sprintf("%s: %s (op=%s, loc=%s)", e.Code, e.Message, e.Op, e.Loc)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the ErrorCode of err, or "" if err is not a
// *ConsistencyError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ce *ConsistencyError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func newZeroIncrementError(op Op, loc Location) *ConsistencyError {
	return &ConsistencyError{
		Code:    ErrCodeZeroIncrement,
		Op:      op,
		Loc:     loc,
		Message: "loop increment must not be zero",
	}
}

func newIllegalBoundsError[T Index, S Signed](op Op, loc Location, sp IterationSpace[T, S]) *ConsistencyError {
	return &ConsistencyError{
		Code:    ErrCodeIllegalBounds,
		Op:      op,
		Loc:     loc,
		Message: "loop bounds disagree with the sign of the increment",
		Details: spaceDetails(sp),
	}
}

func newRangeTooLargeError[T Index, S Signed](op Op, loc Location, sp IterationSpace[T, S]) *ConsistencyError {
	return &ConsistencyError{
		Code:    ErrCodeRangeTooLarge,
		Op:      op,
		Loc:     loc,
		Message: "iteration range too large for the loop variable's counter",
		Details: spaceDetails(sp),
	}
}

func newIllegalExecutorError(op Op, loc Location, what string, index, count uint32) *ConsistencyError {
	return &ConsistencyError{
		Code:    ErrCodeIllegalExecutor,
		Op:      op,
		Loc:     loc,
		Message: fmt.Sprintf("%s index %d outside count %d", what, index, count),
		Details: map[string]string{
			what + "_index": fmt.Sprintf("%d", index),
			what + "_count": fmt.Sprintf("%d", count),
		},
	}
}

func spaceDetails[T Index, S Signed](sp IterationSpace[T, S]) map[string]string {
	return map[string]string{
		"lower": fmt.Sprintf("%d", sp.Lower),
		"upper": fmt.Sprintf("%d", sp.Upper),
		"incr":  fmt.Sprintf("%d", sp.Incr),
	}
}

// mustKnow panics when k has no algorithm.
func mustKnow(op Op, loc Location, k Kind) {
	if !k.Valid() {
		panic(&ConsistencyError{
			Code:    ErrCodeUnknownSchedule,
			Op:      op,
			Loc:     loc,
			Message: fmt.Sprintf("unknown schedule kind %s", k),
		})
	}
}
