package signal

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// interpolateZeroFill evaluates the piecewise-linear interpolant through the
// knots (xs, ys) at every point of at. Points outside [min(xs), max(xs)]
// evaluate to exactly 0. Both resampling stages use this function so the fill
// policy cannot diverge between ingestion and inference.
func interpolateZeroFill(xs, ys, at []float64) []float64 {
	out := make([]float64, len(at))
	kx, ky := prepareKnots(xs, ys)
	switch len(kx) {
	case 0:
		return out
	case 1:
		for i, x := range at {
			if x == kx[0] {
				out[i] = ky[0]
			}
		}
		return out
	}

	var pl interp.PiecewiseLinear
	// prepareKnots guarantees strictly increasing xs, so Fit cannot panic.
	_ = pl.Fit(kx, ky)

	lo, hi := kx[0], kx[len(kx)-1]
	for i, x := range at {
		if math.IsNaN(x) || x < lo || x > hi {
			continue
		}
		out[i] = pl.Predict(x)
	}
	return out
}

// prepareKnots returns the knots sorted by x with duplicate x values
// collapsed to their first occurrence. interp.PiecewiseLinear requires
// strictly increasing abscissae.
func prepareKnots(xs, ys []float64) ([]float64, []float64) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}

	strictly := true
	for i := 1; i < n; i++ {
		if !(xs[i] > xs[i-1]) {
			strictly = false
			break
		}
	}
	if strictly {
		return xs[:n], ys[:n]
	}

	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(xs[i]) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	kx := make([]float64, 0, len(idx))
	ky := make([]float64, 0, len(idx))
	for _, i := range idx {
		if len(kx) > 0 && xs[i] == kx[len(kx)-1] {
			continue
		}
		kx = append(kx, xs[i])
		ky = append(ky, ys[i])
	}
	return kx, ky
}
