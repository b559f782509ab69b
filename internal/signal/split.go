package signal

import "math"

// floorGuard absorbs representation error when a chunk duration is an exact
// multiple of the grid step, e.g. 8.0 * 9.999999999 = 79.99999999.
const floorGuard = 1e-9

// SplitWithPadding cuts coarse into consecutive non-overlapping chunks of
// cfg.ChunkDuration seconds and surrounds each with cfg.PaddingDuration seconds
// of zeros. A trailing partial chunk is discarded.
func SplitWithPadding(coarse CoarseSeries, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := coarse.Len()
	if n < MinDataPoints || len(coarse.Value) != n {
		return nil, &InvalidSeriesError{Reason: "coarse series too short to estimate rate", Points: n}
	}
	step := meanStep(coarse.Time)
	if !(step > 0) {
		return nil, &InvalidSeriesError{Reason: "invalid time intervals (non-positive mean step)", Points: n}
	}

	rate := 1 / step
	samplesPerChunk := int(math.Floor(cfg.ChunkDuration*rate + floorGuard))
	if samplesPerChunk <= 0 {
		return nil, &InvalidSeriesError{Reason: "chunk holds no samples at this rate", Points: n}
	}
	numChunks := n / samplesPerChunk
	if numChunks == 0 {
		return nil, &InsufficientDataError{
			Actual:   coarse.Time[n-1] - coarse.Time[0],
			Required: cfg.ChunkDuration,
		}
	}

	startPad, endPad := paddingAnchors(cfg)
	chunks := make([]Chunk, 0, numChunks)
	for c := 0; c < numChunks; c++ {
		lo := c * samplesPerChunk
		hi := lo + samplesPerChunk
		origin := coarse.Time[lo]

		size := len(startPad) + samplesPerChunk + len(endPad)
		ts := make([]float64, 0, size)
		vs := make([]float64, 0, size)

		ts = append(ts, startPad...)
		vs = append(vs, make([]float64, len(startPad))...)
		for i := lo; i < hi; i++ {
			ts = append(ts, coarse.Time[i]-origin+cfg.PaddingDuration)
			vs = append(vs, coarse.Value[i])
		}
		ts = append(ts, endPad...)
		vs = append(vs, make([]float64, len(endPad))...)

		chunks = append(chunks, Chunk{Time: ts, Value: vs})
	}
	return chunks, nil
}

// paddingAnchors returns the zero-valued knot times placed before and after
// the data region. The start anchors cover [0, padding) and end with a knot
// one ulp below padding so every Stage-2 sample in [0, padding) interpolates
// between two zeros. The end anchors cover [padding+chunk, total] inclusive.
func paddingAnchors(cfg Config) (start, end []float64) {
	pad := cfg.PaddingDuration
	if pad <= 0 {
		return nil, nil
	}
	n := int(pad / cfg.TimeInterval)
	if n < 2 {
		n = 2
	}

	start = make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		start = append(start, pad*float64(i)/float64(n))
	}
	if edge := math.Nextafter(pad, 0); edge > start[len(start)-1] {
		start = append(start, edge)
	}

	from := pad + cfg.ChunkDuration
	total := cfg.TotalDuration()
	end = make([]float64, n+1)
	for i := 0; i < n; i++ {
		end[i] = from + (total-from)*float64(i)/float64(n)
	}
	end[n] = total
	return start, end
}
