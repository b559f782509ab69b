package signal

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ramp returns n samples at rate hz with value equal to the sample index.
func ramp(n int, hz float64) RawSeries {
	r := RawSeries{Time: make([]float64, n), Value: make([]float64, n)}
	for i := 0; i < n; i++ {
		r.Time[i] = float64(i) / hz
		r.Value[i] = float64(i)
	}
	return r
}

func TestConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10.0, cfg.TotalDuration())
	assert.Equal(t, 16000, cfg.SamplesPerChunk())

	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero interval", func(c *Config) { c.TimeInterval = 0 }},
		{"nan interval", func(c *Config) { c.TimeInterval = math.NaN() }},
		{"negative chunk", func(c *Config) { c.ChunkDuration = -1 }},
		{"chunk shorter than interval", func(c *Config) { c.ChunkDuration = 0.05 }},
		{"negative padding", func(c *Config) { c.PaddingDuration = -0.5 }},
		{"zero rate", func(c *Config) { c.TargetRate = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			tc.mod(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestRawSeriesValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		series RawSeries
	}{
		{"empty", RawSeries{}},
		{"single point", RawSeries{Time: []float64{0}, Value: []float64{1}}},
		{"length mismatch", RawSeries{Time: []float64{0, 1}, Value: []float64{1}}},
		{"constant time", RawSeries{Time: []float64{1, 1, 1}, Value: []float64{1, 2, 3}}},
		{"decreasing time", RawSeries{Time: []float64{3, 2, 1}, Value: []float64{1, 2, 3}}},
		{"nan value", RawSeries{Time: []float64{0, 1}, Value: []float64{math.NaN(), 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.series.Validate()
			require.Error(t, err)
			var ise *InvalidSeriesError
			require.True(t, errors.As(err, &ise))
			assert.True(t, errors.Is(err, ErrInvalidSeries))
		})
	}
}

func TestInterpolateCoarse(t *testing.T) {
	t.Parallel()

	t.Run("grid excludes endpoint", func(t *testing.T) {
		raw := RawSeries{Time: []float64{10, 11, 12}, Value: []float64{0, 10, 20}}
		coarse, err := InterpolateCoarse(raw, 0.5)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0.5, 1, 1.5}, coarse.Time)
		assert.InDeltaSlice(t, []float64{0, 5, 10, 15}, coarse.Value, 1e-12)
	})

	t.Run("unsorted knots do not panic", func(t *testing.T) {
		raw := RawSeries{Time: []float64{0, 2, 1, 1, 3}, Value: []float64{0, 2, 1, 9, 3}}
		coarse, err := InterpolateCoarse(raw, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1, 2}, coarse.Time)
		// Duplicate time 1 keeps its first value.
		assert.InDeltaSlice(t, []float64{0, 1, 2}, coarse.Value, 1e-12)
	})

	t.Run("rejects bad interval", func(t *testing.T) {
		_, err := InterpolateCoarse(ramp(10, 10), 0)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects one point", func(t *testing.T) {
		_, err := InterpolateCoarse(RawSeries{Time: []float64{0}, Value: []float64{1}}, 0.1)
		assert.ErrorIs(t, err, ErrInvalidSeries)
	})
}

func TestInterpolateZeroFill(t *testing.T) {
	t.Parallel()

	xs := []float64{1, 2, 3}
	ys := []float64{5, 6, 7}
	got := interpolateZeroFill(xs, ys, []float64{0, 1, 1.5, 3, 3.5, math.NaN()})
	assert.Equal(t, []float64{0, 5, 5.5, 7, 0, 0}, got)

	single := interpolateZeroFill([]float64{2}, []float64{4}, []float64{1, 2, 3})
	assert.Equal(t, []float64{0, 4, 0}, single)
}

func TestSplitWithPadding(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	t.Run("insufficient data", func(t *testing.T) {
		coarse, err := InterpolateCoarse(ramp(500, 100), cfg.TimeInterval)
		require.NoError(t, err)
		_, err = SplitWithPadding(coarse, cfg)
		var ide *InsufficientDataError
		require.ErrorAs(t, err, &ide)
		assert.Equal(t, cfg.ChunkDuration, ide.Required)
		assert.InDelta(t, 4.9, ide.Actual, 1e-9)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("chunk layout", func(t *testing.T) {
		coarse, err := InterpolateCoarse(ramp(2000, 100), cfg.TimeInterval)
		require.NoError(t, err)
		chunks, err := SplitWithPadding(coarse, cfg)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		for _, ch := range chunks {
			require.Equal(t, len(ch.Time), len(ch.Value))
			assert.Equal(t, 0.0, ch.Time[0])
			assert.Equal(t, cfg.TotalDuration(), ch.Time[len(ch.Time)-1])
			for i := 1; i < len(ch.Time); i++ {
				assert.Less(t, ch.Time[i-1], ch.Time[i], "knot %d not increasing", i)
			}
		}
	})

	t.Run("no padding", func(t *testing.T) {
		c := cfg
		c.PaddingDuration = 0
		coarse, err := InterpolateCoarse(ramp(2000, 100), c.TimeInterval)
		require.NoError(t, err)
		chunks, err := SplitWithPadding(coarse, c)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Len(t, chunks[0].Time, 80)
		assert.Equal(t, 0.0, chunks[0].Time[0])
	})
}

func TestResampleFineLength(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	want := cfg.SamplesPerChunk()
	for _, n := range []int{2, 7, 80, 500, 20000} {
		ch := Chunk{Time: make([]float64, n), Value: make([]float64, n)}
		for i := 0; i < n; i++ {
			ch.Time[i] = cfg.TotalDuration() * float64(i) / float64(n-1)
			ch.Value[i] = math.Sin(float64(i))
		}
		got := ResampleFine(ch, cfg.TotalDuration(), cfg.TargetRate)
		assert.Len(t, got, want, "input length %d", n)
	}

	// Rates where ceil and round disagree still yield the rounded length.
	odd := ResampleFine(Chunk{Time: []float64{0, 1}, Value: []float64{1, 1}}, 1.0004, 1000)
	assert.Len(t, odd, 1000)
}

func TestFitLength(t *testing.T) {
	t.Parallel()

	in := []float64{1, 2, 3}
	assert.Equal(t, Waveform{1, 2}, FitLength(in, 2))
	assert.Equal(t, Waveform{1, 2, 3, 0, 0}, FitLength(in, 5))

	same := FitLength(in, 3)
	same[0] = 42
	assert.Equal(t, 1.0, in[0], "FitLength must copy")
	assert.Empty(t, FitLength(in, -1))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("peak is one", func(t *testing.T) {
		in := []float64{0.5, -4, 2}
		out := Normalize(in)
		assert.InDeltaSlice(t, []float64{0.125, -1, 0.5}, []float64(out), 1e-15)
		assert.Equal(t, -4.0, in[1], "input must not be modified")
	})

	t.Run("all zero unchanged", func(t *testing.T) {
		out := Normalize([]float64{0, 0, 0})
		assert.Equal(t, Waveform{0, 0, 0}, out)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, Normalize(nil))
	})
}

// Twenty seconds of a 100 Hz ramp under the default parameters.
func TestProcessRamp(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	raw := ramp(2000, 100)

	coarse, err := InterpolateCoarse(raw, cfg.TimeInterval)
	require.NoError(t, err)
	assert.Equal(t, 200, coarse.Len())

	waves, summary, err := Process(raw, cfg)
	require.NoError(t, err)
	require.Len(t, waves, 2)
	assert.Equal(t, 2, summary.NumChunks)
	assert.Equal(t, 200, summary.CoarseSamples)
	assert.Equal(t, 16000, summary.SamplesPerChunk)
	assert.InDelta(t, 19.99, summary.OriginalDuration, 1e-9)
	assert.InDelta(t, 100, summary.OriginalRate, 1e-6)

	padSamples := int(cfg.PaddingDuration * float64(cfg.TargetRate))
	for c, w := range waves {
		require.Len(t, w, 16000)
		for i := 0; i < padSamples; i++ {
			require.Equal(t, 0.0, w[i], "chunk %d leading sample %d", c, i)
			require.Equal(t, 0.0, w[len(w)-1-i], "chunk %d trailing sample %d", c, i)
		}
		peak := 0.0
		for _, v := range w {
			peak = math.Max(peak, math.Abs(v))
		}
		assert.InDelta(t, 1.0, peak, 1e-12, "chunk %d", c)
	}
}

func TestProcessPaddingFlatness(t *testing.T) {
	t.Parallel()

	cfgs := []Config{
		DefaultConfig(),
		{TimeInterval: 0.05, ChunkDuration: 2, PaddingDuration: 0.3, TargetRate: 500},
		{TimeInterval: 0.1, ChunkDuration: 1, PaddingDuration: 0.25, TargetRate: 1000},
	}
	for _, cfg := range cfgs {
		raw := RawSeries{}
		for i := 0; i < 3000; i++ {
			at := float64(i) * 0.013
			raw.Time = append(raw.Time, at)
			raw.Value = append(raw.Value, 1+math.Sin(at))
		}
		waves, _, err := Process(raw, cfg)
		require.NoError(t, err)
		require.NotEmpty(t, waves)

		rate := float64(cfg.TargetRate)
		dataEnd := cfg.PaddingDuration + cfg.ChunkDuration
		for _, w := range waves {
			require.Len(t, w, cfg.SamplesPerChunk())
			for i, v := range w {
				ts := float64(i) / rate
				if ts < cfg.PaddingDuration || ts > dataEnd {
					require.Equal(t, 0.0, v, "cfg %+v sample %d at %.6fs", cfg, i, ts)
				}
			}
		}
	}
}

func TestProcessErrors(t *testing.T) {
	t.Parallel()

	_, _, err := Process(RawSeries{Time: []float64{0}, Value: []float64{3}}, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidSeries)

	_, _, err = Process(ramp(100, 100), DefaultConfig())
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, _, err = Process(ramp(2000, 100), Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConform(t *testing.T) {
	t.Parallel()

	cfg := Config{TimeInterval: 0.1, ChunkDuration: 1, PaddingDuration: 0.5, TargetRate: 100}
	exact := make([]float64, cfg.SamplesPerChunk())
	exact[10] = 2
	got := Conform(exact, cfg)
	require.Len(t, got, 200)
	assert.Equal(t, 1.0, got[10])

	short := []float64{0, 1, 0, -1}
	assert.Len(t, Conform(short, cfg), 200)
	assert.Len(t, Conform(nil, cfg), 200)
	assert.Len(t, cfg.TimeAxis(), 200)
	assert.Equal(t, 0.01, cfg.TimeAxis()[1])
}

func TestStats(t *testing.T) {
	t.Parallel()

	s := Stats([]float64{1, 2, 3, 4})
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 2.5, s.Mean)
	assert.InDelta(t, math.Sqrt(1.25), s.Std, 1e-12)
	assert.Equal(t, SeriesStats{}, Stats(nil))

	assert.InDelta(t, 100, SamplingRate([]float64{0, 0.01, 0.02}), 1e-9)
	assert.Equal(t, 0.0, SamplingRate([]float64{1}))
}
