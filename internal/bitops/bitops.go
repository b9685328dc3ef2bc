// Package bitops provides small bit-twiddling helpers shared by the
// fixed-size containers.
package bitops

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Fls returns the position of the most significant set bit, counting
// from 1. Fls(0) is 0.
func Fls[T constraints.Unsigned](v T) int {
	return bits.Len64(uint64(v))
}

// IsPow2 reports whether v is a power of two. Zero is not a power of two.
func IsPow2[T constraints.Unsigned](v T) bool {
	return v != 0 && v&(v-1) == 0
}

// RoundDownPow2 returns the largest power of two that is less than or
// equal to v, or 0 when v is 0.
func RoundDownPow2[T constraints.Unsigned](v T) T {
	if v == 0 {
		return 0
	}
	return T(1) << (Fls(v) - 1)
}
