package common

import "math"

// denominators tried by OpFrac, binary first so that the common case exits early.
var denominators = func() []float64 {
	var out []float64
	for _, base := range []int{1, 3, 5, 7, 9, 11, 13} {
		for p := 1; base*p <= 65536; p *= 2 {
			out = append(out, float64(base*p))
		}
	}
	return out
}()

const opFracTolerance = 1e-9

// OpFrac canonicalises a quarter length or offset. Values within a small tolerance of a
// fraction whose denominator is a power of two times a small odd number are snapped to
// that fraction, so 1/3+1/3+1/3 == 1 and 2.5 stays exactly 2.5.
func OpFrac(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	if x == math.Trunc(x) {
		return x
	}
	for _, den := range denominators {
		scaled := x * den
		n := math.Round(scaled)
		if math.Abs(scaled-n) < opFracTolerance*den {
			return n / den
		}
	}
	return x
}

// Near reports whether a and b are equal after canonicalisation.
func Near(a, b float64) bool {
	return OpFrac(a) == OpFrac(b) || math.Abs(a-b) < opFracTolerance
}
