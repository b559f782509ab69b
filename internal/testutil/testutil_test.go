package testutil

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()

	req := NewTestRequest(http.MethodPost, "/api/ingest")
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/ingest", req.URL.Path)
	assert.Equal(t, http.StatusOK, NewTestRecorder().Code)
}

func TestSensorCSV(t *testing.T) {
	t.Parallel()

	out := SensorCSV(CSVOptions{
		Rate:     10,
		Duration: 0.5,
		Preamble: []string{"# device 7"},
		Header:   "t,accel,idx",
		Columns:  3,
		Value:    Ramp(),
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "# device 7", lines[0])
	assert.Equal(t, "t,accel,idx", lines[1])
	assert.Equal(t, "0.000000,0.000000,0", lines[2])
	assert.Equal(t, "0.400000,0.400000,4", lines[6])
}

func TestSimpleCSV(t *testing.T) {
	t.Parallel()

	lines := strings.Split(strings.TrimSpace(SimpleCSV(100, 2)), "\n")
	assert.Len(t, lines, 201)
	assert.Equal(t, "Time,Value", lines[0])
}
