package inference

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/sensorset/internal/httputil"
)

// ErrModelOutput is returned when a model's output does not match its input
// batch or the known class names.
var ErrModelOutput = errors.New("unexpected model output")

// Model maps a batch of waveforms to one row of logits per waveform.
type Model interface {
	Predict(ctx context.Context, batch [][]float64) ([][]float64, error)
}

// RemoteModel calls a model server speaking the TensorFlow Serving REST
// predict format: {"instances": [...]} in, {"predictions": [...]} out.
type RemoteModel struct {
	URL    string
	Client httputil.HTTPClient
}

// NewRemoteModel returns a RemoteModel using the standard HTTP client.
func NewRemoteModel(url string) *RemoteModel {
	return &RemoteModel{URL: url, Client: httputil.NewStandardClient(nil)}
}

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// Predict implements Model.
func (m *RemoteModel) Predict(ctx context.Context, batch [][]float64) ([][]float64, error) {
	var resp predictResponse
	if err := httputil.PostJSON(ctx, m.Client, m.URL, predictRequest{Instances: batch}, &resp); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return resp.Predictions, nil
}

// Prediction is the per-chunk classification of one processed file.
type Prediction struct {
	Logits        [][]float64    `json:"logits"`
	Probabilities [][]float64    `json:"probabilities"`
	ClassIDs      []int          `json:"class_ids"`
	ClassNames    []string       `json:"class_names"`
	Counts        map[string]int `json:"counts"`
	Majority      string         `json:"majority"`
}

// Classify runs m over res and applies softmax and argmax to each row.
// classes maps class IDs to names; each logit row must have len(classes)
// entries.
func Classify(ctx context.Context, m Model, res *Result, classes []string) (*Prediction, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: no class names", ErrModelOutput)
	}
	logits, err := m.Predict(ctx, res.Batch())
	if err != nil {
		return nil, err
	}
	if len(logits) != len(res.Waveforms) {
		return nil, fmt.Errorf("%w: %d rows for %d chunks", ErrModelOutput, len(logits), len(res.Waveforms))
	}

	p := &Prediction{
		Logits:        logits,
		Probabilities: make([][]float64, len(logits)),
		ClassIDs:      make([]int, len(logits)),
		ClassNames:    make([]string, len(logits)),
		Counts:        make(map[string]int),
	}
	for i, row := range logits {
		if len(row) != len(classes) {
			return nil, fmt.Errorf("%w: row %d has %d logits for %d classes", ErrModelOutput, i, len(row), len(classes))
		}
		p.Probabilities[i] = Softmax(row)
		id := floats.MaxIdx(row)
		p.ClassIDs[i] = id
		p.ClassNames[i] = classes[id]
		p.Counts[classes[id]]++
	}
	p.Majority = majority(p.ClassNames, p.Counts)
	return p, nil
}

// Softmax returns exp(x)/sum(exp(x)) computed stably.
func Softmax(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	peak := floats.Max(x)
	for i, v := range x {
		out[i] = math.Exp(v - peak)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// majority returns the most frequent class; ties go to the class seen first.
func majority(names []string, counts map[string]int) string {
	best, bestN := "", 0
	for _, n := range names {
		if counts[n] > bestN {
			best, bestN = n, counts[n]
		}
	}
	return best
}
