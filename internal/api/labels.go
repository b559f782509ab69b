package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zip"

	"github.com/banshee-data/sensorset/internal/dataset"
	"github.com/banshee-data/sensorset/internal/httputil"
	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/preview"
)

type labelInfo struct {
	dataset.Info
	Busy bool `json:"busy"`
}

func (s *Server) listLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.store.Labels()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]labelInfo, 0, len(labels))
	for _, label := range labels {
		info, err := s.store.Info(label)
		if err != nil {
			monitoring.Logf("[api] label %s: %v", label, err)
			continue
		}
		out = append(out, labelInfo{Info: info, Busy: s.jobs.Busy(label)})
	}
	httputil.WriteJSONOK(w, map[string]any{"labels": out})
}

func (s *Server) getLabel(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")
	info, err := s.store.Info(label)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, labelInfo{Info: info, Busy: s.jobs.Busy(label)})
}

type deleteResponse struct {
	dataset.DeleteResult
	RunsDeleted int64 `json:"runs_deleted"`
}

func (s *Server) deleteLabel(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")
	deleteRaw := false
	if v := r.URL.Query().Get("delete_raw"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid delete_raw %q", v))
			return
		}
		deleteRaw = b
	}
	var out deleteResponse
	err := s.jobs.WithLabel(label, func() error {
		res, err := s.store.Delete(label, deleteRaw)
		if err != nil {
			return err
		}
		out.DeleteResult = res
		if s.db != nil {
			n, err := s.db.DeleteRunsForLabel(r.Context(), label)
			if err != nil {
				monitoring.Logf("[api] deleting run history for %s: %v", label, err)
			}
			out.RunsDeleted = n
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")
	files, err := s.store.Files(label)
	if err != nil {
		writeError(w, err)
		return
	}
	if files == nil {
		files = []dataset.FileEntry{}
	}
	httputil.WriteJSONOK(w, map[string]any{"label": label, "files": files})
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.ReadChunk(r.PathValue("label"), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, rec)
}

// chartFile renders one chunk as an HTML chart, or as a PNG with
// ?format=png.
func (s *Server) chartFile(w http.ResponseWriter, r *http.Request) {
	label, name := r.PathValue("label"), r.PathValue("name")
	rec, err := s.store.ReadChunk(label, name)
	if err != nil {
		writeError(w, err)
		return
	}
	o := preview.Options{Title: name, Subtitle: label, YLabel: rec.ValuesLabel}
	series := preview.Series{Name: rec.ValuesLabel, Time: rec.Time, Value: rec.Value}

	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = preview.WriteHTML(w, o, series)
	case "png":
		w.Header().Set("Content-Type", "image/png")
		err = preview.WritePNG(w, o, series)
	default:
		httputil.BadRequest(w, fmt.Sprintf("unknown format %q (want html or png)", format))
		return
	}
	if err != nil {
		monitoring.Logf("[api] chart %s/%s: %v", label, name, err)
	}
}

// downloadLabel streams the label's chunk files and metadata as a zip.
func (s *Server) downloadLabel(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")
	files, err := s.store.Files(label)
	if err != nil {
		writeError(w, err)
		return
	}
	dir, err := s.store.LabelDir(label)
	if err != nil {
		writeError(w, err)
		return
	}
	names := make([]string, 0, len(files)+1)
	for _, f := range files {
		names = append(names, f.Name)
	}
	if s.store.FS().Exists(filepath.Join(dir, dataset.MetadataFilename)) {
		names = append(names, dataset.MetadataFilename)
	}
	s.writeZip(w, label, dir, names)
}

// downloadFile sends one chunk file as CSV.
func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.store.ChunkPath(r.PathValue("label"), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.sendFile(w, path, "text/csv")
}

// writeZip streams the named files of dir as archive.zip, each stored as
// archive/name.
func (s *Server) writeZip(w http.ResponseWriter, archive, dir string, names []string) {
	fsys := s.store.FS()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive+".zip"))

	zw := zip.NewWriter(w)
	for _, name := range names {
		data, err := fsys.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			monitoring.Logf("[api] download %s: %v", archive, err)
			continue
		}
		f, err := zw.Create(archive + "/" + name)
		if err != nil {
			monitoring.Logf("[api] download %s: %v", archive, err)
			return
		}
		if _, err := f.Write(data); err != nil {
			monitoring.Logf("[api] download %s: %v", archive, err)
			return
		}
	}
	if err := zw.Close(); err != nil {
		monitoring.Logf("[api] download %s: %v", archive, err)
	}
}

func (s *Server) sendFile(w http.ResponseWriter, path, contentType string) {
	data, err := s.store.FS().ReadFile(path)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	if _, err := w.Write(data); err != nil {
		monitoring.Logf("[api] send %s: %v", path, err)
	}
}
