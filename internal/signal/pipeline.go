package signal

// Summary describes one run of Process over a raw series.
type Summary struct {
	OriginalDuration float64 `json:"original_duration"`
	OriginalRate     float64 `json:"original_rate"`
	CoarseSamples    int     `json:"coarse_samples"`
	NumChunks        int     `json:"num_chunks"`
	SamplesPerChunk  int     `json:"samples_per_chunk"`
}

// Process runs the full pipeline: Stage-1 interpolation, padded splitting,
// Stage-2 resampling and normalization. Every returned waveform has exactly
// cfg.SamplesPerChunk() samples.
func Process(raw RawSeries, cfg Config) ([]Waveform, Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Summary{}, err
	}
	if err := raw.Validate(); err != nil {
		return nil, Summary{}, err
	}
	summary := Summary{
		OriginalDuration: raw.Duration(),
		OriginalRate:     1 / meanStep(raw.Time),
		SamplesPerChunk:  cfg.SamplesPerChunk(),
	}

	coarse, err := InterpolateCoarse(raw, cfg.TimeInterval)
	if err != nil {
		return nil, summary, err
	}
	summary.CoarseSamples = coarse.Len()

	chunks, err := SplitWithPadding(coarse, cfg)
	if err != nil {
		return nil, summary, err
	}

	total := cfg.TotalDuration()
	waves := make([]Waveform, len(chunks))
	for i, ch := range chunks {
		waves[i] = Normalize(ResampleFine(ch, total, cfg.TargetRate))
	}
	summary.NumChunks = len(waves)
	return waves, summary, nil
}

// TimeAxis returns the sample times of a waveform produced with c.
func (c Config) TimeAxis() []float64 {
	n := c.SamplesPerChunk()
	ts := make([]float64, n)
	rate := float64(c.TargetRate)
	for i := range ts {
		ts[i] = float64(i) / rate
	}
	return ts
}

// Conform brings a stored waveform back to the length c expects. Values of
// the right length are only re-normalized; others are treated as evenly
// spaced over the padded duration and resampled.
func Conform(values []float64, c Config) Waveform {
	want := c.SamplesPerChunk()
	if len(values) == want {
		return Normalize(values)
	}
	if len(values) == 0 {
		return make(Waveform, want)
	}
	total := c.TotalDuration()
	ts := make([]float64, len(values))
	for i := range ts {
		ts[i] = total * float64(i) / float64(len(values))
	}
	return Normalize(ResampleFine(Chunk{Time: ts, Value: values}, total, c.TargetRate))
}
