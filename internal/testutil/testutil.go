// Package testutil provides shared test helpers and synthetic sensor CSV
// fixtures.
package testutil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// CSVOptions shapes a synthetic sensor file.
type CSVOptions struct {
	Rate     float64 // samples per second
	Duration float64 // seconds, exclusive
	Preamble []string
	Header   string // omitted when empty
	// Columns is the number of columns per row. The time column is 0 and the
	// value column is 1; extra columns hold the row index.
	Columns int
	Value   func(t float64) float64
}

// SensorCSV renders a (time, value) CSV with times i/Rate for i < Duration*Rate.
func SensorCSV(o CSVOptions) string {
	if o.Columns < 2 {
		o.Columns = 2
	}
	if o.Value == nil {
		o.Value = Sine(5)
	}
	var b strings.Builder
	for _, l := range o.Preamble {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if o.Header != "" {
		b.WriteString(o.Header)
		b.WriteByte('\n')
	}
	n := int(math.Round(o.Duration * o.Rate))
	for i := 0; i < n; i++ {
		t := float64(i) / o.Rate
		b.WriteString(strconv.FormatFloat(t, 'f', 6, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(o.Value(t), 'f', 6, 64))
		for c := 2; c < o.Columns; c++ {
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(i))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// SimpleCSV is a headed two-column file at rate Hz lasting duration seconds.
func SimpleCSV(rate, duration float64) string {
	return SensorCSV(CSVOptions{Rate: rate, Duration: duration, Header: "Time,Value"})
}

// Sine returns a unit sine at freq Hz.
func Sine(freq float64) func(float64) float64 {
	return func(t float64) float64 { return math.Sin(2 * math.Pi * freq * t) }
}

// Ramp returns t itself.
func Ramp() func(float64) float64 {
	return func(t float64) float64 { return t }
}
