package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorset/internal/testutil"
)

// constantModel scores every chunk with the same logits.
type constantModel struct {
	logits []float64
	err    error
}

func (m constantModel) Predict(ctx context.Context, batch [][]float64) ([][]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float64, len(batch))
	for i := range batch {
		out[i] = m.logits
	}
	return out, nil
}

func TestProcess(t *testing.T) {
	t.Parallel()
	e := setupTestServer(t)
	csv := []byte(testutil.SimpleCSV(100, 3))

	w := e.do(t, http.MethodPost, "/api/process?source=probe.csv", csv)
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	res := decode[processResponse](t, w)
	assert.Equal(t, "probe.csv", res.Metadata.SourceFile)
	assert.Equal(t, 3, res.Metadata.NumChunks)
	assert.Equal(t, 0.1, res.Metadata.DBTimeInterval)
	assert.Nil(t, res.Prediction)
	require.Len(t, res.Chunks, 3)
	for i, c := range res.Chunks {
		assert.Equal(t, i, c.Index)
		assert.GreaterOrEqual(t, c.Min, -1.0)
		assert.LessOrEqual(t, c.Max, 1.0)
		assert.LessOrEqual(t, c.RMS, 1.0)
	}

	labels, err := e.store.Labels()
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestProcessErrors(t *testing.T) {
	t.Parallel()
	e := setupTestServer(t)

	tests := []struct {
		name   string
		target string
		body   []byte
		want   int
	}{
		{"empty body", "/api/process", nil, http.StatusBadRequest},
		{"one point", "/api/process", []byte("Time,Value\n0,1\n"), http.StatusUnprocessableEntity},
		{"too short", "/api/process", []byte(testutil.SimpleCSV(100, 0.5)), http.StatusUnprocessableEntity},
		{"unknown format", "/api/process?format=svg", []byte(testutil.SimpleCSV(100, 3)), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, tt.target, tt.body)
			testutil.AssertStatusCode(t, w.Code, tt.want)
		})
	}
}

func TestProcessPreview(t *testing.T) {
	t.Parallel()
	e := setupTestServer(t)
	csv := []byte(testutil.SimpleCSV(100, 3))

	w := e.do(t, http.MethodPost, "/api/process?format=png", csv)
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = e.do(t, http.MethodPost, "/api/process?format=html", csv)
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Contains(t, w.Body.String(), "chunk 3")
}

func TestProcessClassify(t *testing.T) {
	t.Parallel()
	classes := []string{"healthy", "crack"}
	csv := []byte(testutil.SimpleCSV(100, 3))

	e := setupTestServer(t, func(o *Options) {
		o.Model = constantModel{logits: []float64{0.1, 2.5}}
		o.ClassNames = classes
	})
	w := e.do(t, http.MethodPost, "/api/process", csv)
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	res := decode[processResponse](t, w)
	require.NotNil(t, res.Prediction)
	assert.Equal(t, "crack", res.Prediction.Majority)
	assert.Equal(t, map[string]int{"crack": 3}, res.Prediction.Counts)

	failing := setupTestServer(t, func(o *Options) {
		o.Model = constantModel{err: errors.New("model offline")}
		o.ClassNames = classes
	})
	w = failing.do(t, http.MethodPost, "/api/process", csv)
	testutil.AssertStatusCode(t, w.Code, http.StatusBadGateway)
}
