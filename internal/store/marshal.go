package store

import (
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/loopsched/internal/sched"
)

// encodeCount stores an unsigned 64-bit count in a signed INTEGER column,
// preserving its bit pattern.
func encodeCount(v uint64) int64 {
	return int64(v)
}

// decodeCount reverses encodeCount.
func decodeCount(v int64) uint64 {
	return uint64(v)
}

// normalizeLoc returns the NFC form of a location token so that the same
// source file spelled with different Unicode compositions groups together.
func normalizeLoc(loc sched.Location) string {
	return norm.NFC.String(string(loc))
}

// parseKind decodes a stored kind name. Unknown names decode to the zero
// Kind rather than failing the read.
func parseKind(s string) sched.Kind {
	k, err := sched.ParseKind(s)
	if err != nil {
		return 0
	}
	return k
}
