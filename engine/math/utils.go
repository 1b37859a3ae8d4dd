package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// IsPow2 reports whether v is a power of two. Zero is not one.
func IsPow2[T constraints.Unsigned](v T) bool {
	return v != 0 && v&(v-1) == 0
}

// NextPow2 returns the smallest power of two greater than or equal to v.
func NextPow2[T constraints.Unsigned](v T) T {
	if v == 0 {
		return 1
	}
	v--
	for shift := 1; shift < 64; shift <<= 1 {
		v |= v >> shift
	}
	return v + 1
}
