package api

import (
	"net/http"
	"path/filepath"

	"github.com/banshee-data/sensorset/internal/dataset"
	"github.com/banshee-data/sensorset/internal/httputil"
)

func (s *Server) listRawFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.store.RawFolders()
	if err != nil {
		writeError(w, err)
		return
	}
	if folders == nil {
		folders = []dataset.RawFolder{}
	}
	httputil.WriteJSONOK(w, map[string]any{"folders": folders})
}

func (s *Server) getRawFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := s.store.RawInfo(r.PathValue("folder"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, folder)
}

// downloadRawFolder zips the CSV files of a backup folder, keeping their
// subfolder paths.
func (s *Server) downloadRawFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := s.store.RawInfo(r.PathValue("folder"))
	if err != nil {
		writeError(w, err)
		return
	}
	names := make([]string, 0, len(folder.Files)+1)
	for _, f := range folder.Files {
		names = append(names, f.Name)
	}
	if folder.Metadata != nil {
		names = append(names, dataset.MetadataFilename)
	}
	s.writeZip(w, folder.Name, folder.Path, names)
}

func (s *Server) downloadRawFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.store.RawFilePath(r.PathValue("folder"), r.PathValue("file"))
	if err != nil {
		writeError(w, err)
		return
	}
	contentType := "application/octet-stream"
	switch filepath.Ext(path) {
	case ".csv":
		contentType = "text/csv"
	case ".json":
		contentType = "application/json"
	}
	s.sendFile(w, path, contentType)
}
