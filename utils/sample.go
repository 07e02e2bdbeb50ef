// SPDX-License-Identifier: EPL-2.0

// Package utils holds the sample-level helpers shared by the resampler,
// the graph sources and the offline renderer.
package utils

// Sample is a floating point audio sample.
type Sample interface {
	~float32 | ~float64
}

// CubicInterpolate evaluates a Catmull-Rom spline through four consecutive
// samples. x is the fractional position between y1 and y2 (0 <= x <= 1).
func CubicInterpolate[T Sample](y0, y1, y2, y3, x T) T {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2

	return ((a0*x+a1)*x+a2)*x + y1
}

// ToInt16 converts a sample in [-1, 1] to 16-bit PCM. The scale matches the
// decoders, which divide by 32768, so decoded PCM converts back exactly.
// Out of range input is clamped.
func ToInt16[T Sample](x T) int16 {
	v := float64(x) * 32768
	switch {
	case v >= 32767:
		return 32767
	case v <= -32768:
		return -32768
	}
	return int16(v)
}

// AppendInt16 converts src with ToInt16 and appends the result to dst.
func AppendInt16[T Sample](dst []int16, src []T) []int16 {
	dst = growInt16(dst, len(src))
	for _, x := range src {
		dst = append(dst, ToInt16(x))
	}
	return dst
}

func growInt16(s []int16, n int) []int16 {
	if cap(s)-len(s) >= n {
		return s
	}
	grown := make([]int16, len(s), len(s)+max(n, cap(s)))
	copy(grown, s)
	return grown
}
