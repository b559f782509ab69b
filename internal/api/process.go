package api

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/sensorset/internal/dataset"
	"github.com/banshee-data/sensorset/internal/fsutil"
	"github.com/banshee-data/sensorset/internal/httputil"
	"github.com/banshee-data/sensorset/internal/inference"
	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/preview"
	"github.com/banshee-data/sensorset/internal/signal"
)

// maxProcessBytes bounds a CSV uploaded to /api/process.
const maxProcessBytes = 64 << 20

type chunkStats struct {
	Index int `json:"index"`
	signal.SeriesStats
	RMS float64 `json:"rms"`
}

type processResponse struct {
	Metadata   inference.ProcessingMetadata `json:"metadata"`
	Chunks     []chunkStats                 `json:"chunks"`
	Prediction *inference.Prediction        `json:"prediction,omitempty"`
}

// process runs the pipeline over a CSV request body without touching the
// store. ?source names the file in the metadata; ?format=png or html returns
// a preview of the chunks instead of JSON.
func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProcessBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	if len(data) == 0 {
		httputil.BadRequest(w, "empty request body")
		return
	}

	q := r.URL.Query()
	source := q.Get("source")
	format := q.Get("format")
	switch format {
	case "", "json", "png", "html":
	default:
		httputil.BadRequest(w, fmt.Sprintf("unknown format %q (want json, png or html)", format))
		return
	}

	res, err := s.processor.Process(r.Context(), source, data)
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case "png", "html":
		s.writePreview(w, format, res)
		return
	}

	out := processResponse{Metadata: res.Metadata, Chunks: make([]chunkStats, len(res.Waveforms))}
	for i, wave := range res.Waveforms {
		out.Chunks[i] = waveformStats(i, wave)
	}
	if s.model != nil && len(res.Waveforms) > 0 {
		pred, err := inference.Classify(r.Context(), s.model, res, s.classes)
		if err != nil {
			monitoring.Logf("[api] classify %s: %v", source, err)
			httputil.WriteJSONError(w, http.StatusBadGateway, err.Error())
			return
		}
		out.Prediction = pred
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) writePreview(w http.ResponseWriter, format string, res *inference.Result) {
	series := preview.WaveformSeries("chunk", s.processor.Config, res.Waveforms)
	if len(series) == 0 {
		httputil.UnprocessableEntity(w, preview.ErrNoSeries.Error())
		return
	}
	o := preview.Options{Title: res.Metadata.SourceFile, Subtitle: res.Metadata.CSVStructure.ValuesLabel}

	var err error
	if format == "png" {
		w.Header().Set("Content-Type", "image/png")
		err = preview.WritePNG(w, o, series...)
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = preview.WriteHTML(w, o, series...)
	}
	if err != nil {
		monitoring.Logf("[api] preview: %v", err)
	}
}

func waveformStats(i int, wave []float64) chunkStats {
	st := chunkStats{Index: i, SeriesStats: signal.Stats(wave)}
	if len(wave) > 0 {
		st.RMS = math.Sqrt(floats.Dot(wave, wave) / float64(len(wave)))
	}
	return st
}

type suggestRequest struct {
	Folder string `json:"folder"`
}

type suggestResponse struct {
	Label  string `json:"label"`
	Exists bool   `json:"exists"`
}

// suggestLabel derives a label from a folder name and reports whether the
// store already has it.
func (s *Server) suggestLabel(w http.ResponseWriter, r *http.Request) {
	var body suggestRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if body.Folder == "" {
		httputil.BadRequest(w, "folder is required")
		return
	}
	label := dataset.SuggestLabel(body.Folder)
	out := suggestResponse{Label: label}
	if dir, err := s.store.LabelDir(label); err == nil {
		out.Exists = fsutil.IsDir(s.store.FS(), dir)
	}
	httputil.WriteJSONOK(w, out)
}
