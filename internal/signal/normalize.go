package signal

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Normalize scales values so the largest absolute sample is 1. An all-zero
// input is returned unchanged. The input is never modified.
func Normalize(values []float64) Waveform {
	out := make(Waveform, len(values))
	copy(out, values)
	if len(out) == 0 {
		return out
	}
	peak := floats.Norm(out, math.Inf(1))
	if peak == 0 || math.IsNaN(peak) {
		return out
	}
	floats.Scale(1/peak, out)
	return out
}
