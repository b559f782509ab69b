package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/sensorset/internal/preview"
)

func TestRawPath(t *testing.T) {
	tests := map[string]string{
		"chunks.png":       "chunks_raw.png",
		"out/probe.html":   "out/probe_raw.html",
		"noext":            "noext_raw",
		"dir.v2/chart.png": "dir.v2/chart_raw.png",
	}
	for in, want := range tests {
		if got := rawPath(in); got != want {
			t.Errorf("rawPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.html")
	series := []preview.Series{{Name: "chunk 1", Time: []float64{0, 0.5, 1}, Value: []float64{0, 1, 0}}}
	if err := writeHTMLFile(path, preview.Options{Title: "probe"}, series); err != nil {
		t.Fatalf("writeHTMLFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "chunk 1") {
		t.Error("expected series name in HTML output")
	}

	if err := writeHTMLFile(path, preview.Options{}, nil); err == nil {
		t.Error("expected error for no series")
	}
}
