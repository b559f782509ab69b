package preview

import (
	"bytes"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorset/internal/signal"
)

func smallWaves() (signal.Config, []signal.Waveform) {
	cfg := signal.Config{TimeInterval: 0.1, ChunkDuration: 1, PaddingDuration: 0.5, TargetRate: 20}
	n := cfg.SamplesPerChunk()
	a := make(signal.Waveform, n)
	b := make(signal.Waveform, n)
	for i := 10; i < 30; i++ {
		a[i] = 1
		b[i] = -0.5
	}
	return cfg, []signal.Waveform{a, b}
}

func TestWaveformSeries(t *testing.T) {
	t.Parallel()
	cfg, waves := smallWaves()

	series := WaveformSeries("chunk", cfg, waves)
	require.Len(t, series, 2)
	assert.Equal(t, "chunk 2", series[1].Name)
	assert.Len(t, series[0].Time, 40)
	assert.InDelta(t, 0.5, series[0].Time[10], 1e-12)

	odd := WaveformSeries("x", cfg, []signal.Waveform{{1, 2, 3}})
	assert.Equal(t, []float64{0, 0.05, 0.1}, odd[0].Time)
}

func TestStride(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, stride(MaxPoints))
	assert.Equal(t, 2, stride(MaxPoints+1))
	assert.Equal(t, 4, stride(16000))
}

func TestWritePNG(t *testing.T) {
	t.Parallel()
	cfg, waves := smallWaves()

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, Options{Title: "crack", Subtitle: "2 chunks"}, WaveformSeries("chunk", cfg, waves)...))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}

func TestSavePNG(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "raw.png")
	raw := signal.RawSeries{Time: []float64{0, 0.01, 0.02}, Value: []float64{1, -1, 1}}
	require.NoError(t, SavePNG(path, Options{Title: "raw"}, RawSeries("input", raw)))
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()
	cfg, waves := smallWaves()

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, Options{Title: "crack_0001"}, WaveformSeries("chunk", cfg, waves)...))
	out := buf.String()
	assert.True(t, strings.Contains(out, "<html"), "renders a full page")
	assert.Contains(t, out, "crack_0001")
	assert.Contains(t, out, "echarts")
}

func TestRejectsBadInput(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.ErrorIs(t, WritePNG(&buf, Options{}), ErrNoSeries)
	assert.ErrorIs(t, WriteHTML(&buf, Options{}), ErrNoSeries)

	bad := Series{Name: "bad", Time: []float64{0, 1}, Value: []float64{1}}
	assert.Error(t, WritePNG(&buf, Options{}, bad))
	assert.Error(t, WriteHTML(&buf, Options{}, bad))
}
