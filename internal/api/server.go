package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/sensorset/internal/dataset"
	"github.com/banshee-data/sensorset/internal/db"
	"github.com/banshee-data/sensorset/internal/httputil"
	"github.com/banshee-data/sensorset/internal/inference"
	"github.com/banshee-data/sensorset/internal/ingest"
	"github.com/banshee-data/sensorset/internal/jobs"
	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/security"
	"github.com/banshee-data/sensorset/internal/sensorcsv"
	"github.com/banshee-data/sensorset/internal/signal"
	"github.com/banshee-data/sensorset/internal/structure"
	"github.com/banshee-data/sensorset/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Options wires a Server. Store and Jobs are required.
type Options struct {
	Store    *dataset.Store
	Jobs     *jobs.Manager
	DB       *db.DB // nil disables /api/runs
	Resolver *structure.Resolver
	Config   signal.Config

	// Model classifies /api/process results when set. ClassNames maps its
	// output indices to names.
	Model      inference.Model
	ClassNames []string

	// ImportDirs restricts the folders /api/ingest may read. Empty allows
	// any folder.
	ImportDirs []string
}

type Server struct {
	store      *dataset.Store
	jobs       *jobs.Manager
	db         *db.DB
	processor  *inference.Processor
	model      inference.Model
	classes    []string
	importDirs []string
}

func NewServer(o Options) *Server {
	return &Server{
		store:      o.Store,
		jobs:       o.Jobs,
		db:         o.DB,
		processor:  &inference.Processor{Config: o.Config, Resolver: o.Resolver},
		model:      o.Model,
		classes:    o.ClassNames,
		importDirs: o.ImportDirs,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/version", s.showVersion)
	mux.HandleFunc("GET /api/config", s.showConfig)

	mux.HandleFunc("GET /api/labels", s.listLabels)
	mux.HandleFunc("GET /api/labels/{label}", s.getLabel)
	mux.HandleFunc("DELETE /api/labels/{label}", s.deleteLabel)
	mux.HandleFunc("GET /api/labels/{label}/download", s.downloadLabel)
	mux.HandleFunc("GET /api/labels/{label}/files", s.listFiles)
	mux.HandleFunc("GET /api/labels/{label}/files/{name}", s.getFile)
	mux.HandleFunc("GET /api/labels/{label}/files/{name}/chart", s.chartFile)
	mux.HandleFunc("GET /api/labels/{label}/files/{name}/download", s.downloadFile)

	mux.HandleFunc("GET /api/raw-database", s.listRawFolders)
	mux.HandleFunc("GET /api/raw-database/{folder}", s.getRawFolder)
	mux.HandleFunc("GET /api/raw-database/{folder}/download", s.downloadRawFolder)
	mux.HandleFunc("GET /api/raw-database/{folder}/files/{file...}", s.downloadRawFile)

	mux.HandleFunc("POST /api/ingest", s.startIngest)
	mux.HandleFunc("GET /api/jobs", s.listJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.getJob)
	mux.HandleFunc("POST /api/jobs/{id}/stop", s.stopJob)

	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.getRun)

	mux.HandleFunc("POST /api/process", s.process)
	mux.HandleFunc("POST /api/suggest-label", s.suggestLabel)
	return mux
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Get())
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.processor.Config)
}

// writeError maps pipeline and store errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, dataset.ErrInvalidLabel),
		errors.Is(err, signal.ErrInvalidConfig):
		httputil.BadRequest(w, msg)
	case errors.Is(err, security.ErrPathOutsideAllowed):
		httputil.WriteJSONError(w, http.StatusForbidden, msg)
	case errors.Is(err, dataset.ErrLabelNotFound),
		errors.Is(err, dataset.ErrChunkNotFound),
		errors.Is(err, dataset.ErrRawFolderNotFound),
		errors.Is(err, dataset.ErrRawFileNotFound),
		errors.Is(err, ingest.ErrFolderNotFound),
		errors.Is(err, jobs.ErrJobNotFound),
		errors.Is(err, db.ErrRunNotFound):
		httputil.NotFound(w, msg)
	case errors.Is(err, jobs.ErrLabelBusy),
		errors.Is(err, jobs.ErrNotRunning):
		httputil.Conflict(w, msg)
	case errors.Is(err, ingest.ErrNoCSVFiles),
		errors.Is(err, signal.ErrInvalidSeries),
		errors.Is(err, signal.ErrInsufficientData),
		errors.Is(err, sensorcsv.ErrMalformed),
		errors.Is(err, dataset.ErrMalformedChunk):
		httputil.UnprocessableEntity(w, msg)
	case errors.Is(err, jobs.ErrClosed):
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, msg)
	default:
		monitoring.Logf("[api] %v", err)
		httputil.InternalServerError(w, msg)
	}
}
