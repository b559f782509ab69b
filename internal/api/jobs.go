package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/sensorset/internal/dataset"
	"github.com/banshee-data/sensorset/internal/httputil"
	"github.com/banshee-data/sensorset/internal/ingest"
	"github.com/banshee-data/sensorset/internal/security"
	"github.com/banshee-data/sensorset/internal/signal"
	"github.com/banshee-data/sensorset/internal/structure"
)

// defaultRunLimit caps /api/runs when no limit is given.
const defaultRunLimit = 50

type ingestRequest struct {
	Folder    string                  `json:"folder"`
	Label     string                  `json:"label"`
	Mode      dataset.Mode            `json:"mode"`
	Recursive bool                    `json:"recursive"`
	BackupRaw bool                    `json:"backup_raw"`
	Structure *structure.CSVStructure `json:"structure,omitempty"`
	Config    *signal.Config          `json:"config,omitempty"`
}

// startIngest validates the request and starts a background job. Problems
// with the label, folder or config are reported here, before any work runs.
// Fields omitted from a config override keep the service defaults.
func (s *Server) startIngest(w http.ResponseWriter, r *http.Request) {
	defaults := s.processor.Config
	body := ingestRequest{Config: &defaults}
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if body.Folder == "" || body.Label == "" {
		httputil.BadRequest(w, "folder and label are required")
		return
	}
	if len(s.importDirs) > 0 {
		if err := security.ValidatePathWithinAllowedDirs(body.Folder, s.importDirs); err != nil {
			writeError(w, err)
			return
		}
	}

	cfg := s.processor.Config
	if body.Config != nil {
		cfg = *body.Config
	}
	job, err := s.jobs.Start(ingest.Request{
		Folder:    body.Folder,
		Label:     body.Label,
		Mode:      body.Mode,
		Config:    cfg,
		Recursive: body.Recursive,
		Structure: body.Structure,
		BackupRaw: body.BackupRaw,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, job)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]any{"jobs": s.jobs.List()})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.jobs.Get(id)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("job %s not found", id))
		return
	}
	httputil.WriteJSONOK(w, job)
}

// stopJob asks a running job to stop. The job finishes its current chunk
// and reports itself stopped.
func (s *Server) stopJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.jobs.Stop(id); err != nil {
		writeError(w, err)
		return
	}
	job, _ := s.jobs.Get(id)
	httputil.WriteJSON(w, http.StatusAccepted, job)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.db.ListRuns(r.Context(), r.URL.Query().Get("label"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"runs": runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	run, err := s.db.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, run)
}
