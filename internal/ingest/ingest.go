// Package ingest turns a folder of raw sensor CSV files into chunk files and
// metadata for one classification label.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/sensorset/internal/dataset"
	"github.com/banshee-data/sensorset/internal/fsutil"
	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/security"
	"github.com/banshee-data/sensorset/internal/sensorcsv"
	"github.com/banshee-data/sensorset/internal/signal"
	"github.com/banshee-data/sensorset/internal/structure"
)

var (
	// ErrFolderNotFound is returned when the import folder is missing or not
	// a directory.
	ErrFolderNotFound = errors.New("import folder not found")

	// ErrNoCSVFiles is returned when the import folder holds no CSV files.
	ErrNoCSVFiles = errors.New("no CSV files found")
)

// Request describes one ingestion run.
type Request struct {
	Folder    string
	Label     string
	Mode      dataset.Mode
	Config    signal.Config
	Recursive bool

	// Structure skips detection when set.
	Structure *structure.CSVStructure

	BackupRaw    bool
	SkipMetadata bool
}

// Status is the outcome of one source file.
type Status string

const (
	StatusOK    Status = "ok"
	StatusSkip  Status = "skip"
	StatusError Status = "error"
)

// FileResult is the per-file log line of a run.
type FileResult struct {
	Path   string `json:"path"`
	Status Status `json:"status"`
	Chunks int    `json:"chunks"`
	Err    string `json:"error,omitempty"`
}

// Report summarizes a finished (or stopped) run.
type Report struct {
	Label            string                 `json:"label"`
	Folder           string                 `json:"folder"`
	Mode             dataset.Mode           `json:"mode"`
	Config           signal.Config          `json:"config"`
	Structure        structure.CSVStructure `json:"structure"`
	StructureSource  string                 `json:"structure_source"`
	RawBackup        string                 `json:"raw_backup,omitempty"`
	Files            []FileResult           `json:"files"`
	TotalChunks      int                    `json:"total_chunks"`
	FirstID          int                    `json:"first_id"`
	LastID           int                    `json:"last_id"`
	SourceFilesCount int                    `json:"source_files_count"`
	WriteFailures    int                    `json:"write_failures"`
	Cancelled        bool                   `json:"cancelled"`
	StartedAt        time.Time              `json:"started_at"`
	FinishedAt       time.Time              `json:"finished_at"`
}

// Count returns how many files ended with status st.
func (r *Report) Count(st Status) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == st {
			n++
		}
	}
	return n
}

// Progress is reported after every file.
type Progress struct {
	FilesDone  int    `json:"files_done"`
	FilesTotal int    `json:"files_total"`
	Chunks     int    `json:"chunks"`
	Current    string `json:"current"`
}

// Recorder persists finished runs. It is optional.
type Recorder interface {
	RecordRun(ctx context.Context, r *Report) error
}

// Ingester runs ingestion requests against a dataset store.
type Ingester struct {
	Store    *dataset.Store
	Resolver *structure.Resolver
	Recorder Recorder
}

// New returns an Ingester with the heuristic-only resolver.
func New(store *dataset.Store) *Ingester {
	return &Ingester{Store: store, Resolver: structure.NewResolver(nil)}
}

// Validate checks a request before any work is done and returns the CSV
// files it would process.
func (in *Ingester) Validate(req Request) ([]string, error) {
	if err := security.ValidateLabel(req.Label); err != nil {
		return nil, err
	}
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}
	fsys := in.Store.FS()
	if req.Folder == "" || !fsutil.IsDir(fsys, req.Folder) {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, req.Folder)
	}
	files, err := dataset.FindCSVFiles(fsys, req.Folder, req.Recursive)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCSVFiles, req.Folder)
	}
	return files, nil
}

// Run executes req. Per-file problems are recorded in the report and never
// abort the batch. Cancelling ctx stops the run between files or between
// chunks; a chunk write already in progress completes. The returned error is
// non-nil only for request validation or store-level failures.
func (in *Ingester) Run(ctx context.Context, req Request, progress func(Progress)) (*Report, error) {
	files, err := in.Validate(req)
	if err != nil {
		return nil, err
	}
	clock := in.Store.Clock()
	rep := &Report{
		Label:     req.Label,
		Folder:    req.Folder,
		Mode:      req.Mode,
		Config:    req.Config,
		StartedAt: clock.Now(),
		Files:     make([]FileResult, 0, len(files)),
	}
	monitoring.Logf("[ingest] %s: %d CSV files from %s (%s mode)", req.Label, len(files), req.Folder, req.Mode)

	if req.BackupRaw {
		dst, copied, err := in.Store.BackupRaw(req.Folder)
		if err != nil {
			return nil, err
		}
		rep.RawBackup = dst
		if copied {
			raw := dataset.GenerateRawMetadata(in.Store.FS(), req.Folder, files, clock.Now())
			if err := in.Store.SaveRawMetadata(dst, raw); err != nil {
				monitoring.Logf("[ingest] %s: raw metadata: %v", req.Label, err)
			}
		}
	}

	rep.Structure, rep.StructureSource = in.resolveStructure(ctx, req, files[0])
	monitoring.Logf("[ingest] %s: structure %+v (%s)", req.Label, rep.Structure, rep.StructureSource)

	alloc, err := in.Store.NewAllocator(req.Label, req.Mode)
	if err != nil {
		return nil, err
	}

	var sample signal.RawSeries
	var sourceFiles []string
	for i, path := range files {
		if ctx.Err() != nil {
			rep.Cancelled = true
			break
		}
		res, raw := in.processFile(ctx, req, rep, alloc, path)
		rep.Files = append(rep.Files, res)
		if res.Chunks > 0 {
			sourceFiles = append(sourceFiles, path)
			if sample.Len() == 0 {
				sample = raw
			}
		}
		if progress != nil {
			progress(Progress{FilesDone: i + 1, FilesTotal: len(files), Chunks: alloc.Count(), Current: path})
		}
	}
	if ctx.Err() != nil {
		rep.Cancelled = true
	}

	rep.TotalChunks = alloc.Count()
	rep.SourceFilesCount = len(sourceFiles)
	if first, last, ok := alloc.Range(); ok {
		rep.FirstID, rep.LastID = first, last
	}

	if !req.SkipMetadata && rep.TotalChunks > 0 {
		if err := in.writeMetadata(req, rep, sourceFiles, sample); err != nil {
			monitoring.Logf("[ingest] %s: metadata: %v", req.Label, err)
		}
	}
	rep.FinishedAt = clock.Now()

	if in.Recorder != nil {
		if err := in.Recorder.RecordRun(context.WithoutCancel(ctx), rep); err != nil {
			monitoring.Logf("[ingest] %s: record run: %v", req.Label, err)
		}
	}
	monitoring.Logf("[ingest] %s: %d chunks from %d/%d files (ok=%d skip=%d error=%d cancelled=%v)",
		req.Label, rep.TotalChunks, rep.SourceFilesCount, len(files),
		rep.Count(StatusOK), rep.Count(StatusSkip), rep.Count(StatusError), rep.Cancelled)
	return rep, nil
}

func (in *Ingester) resolveStructure(ctx context.Context, req Request, first string) (structure.CSVStructure, string) {
	if req.Structure != nil {
		return req.Structure.Clamp(), "request"
	}
	resolver := in.Resolver
	if resolver == nil {
		resolver = structure.NewResolver(nil)
	}
	f, err := in.Store.FS().Open(first)
	if err != nil {
		monitoring.Logf("[ingest] could not read sample from %s: %v", first, err)
		return structure.Default(), "default"
	}
	defer f.Close()
	sample, err := structure.ReadSample(f, structure.SampleLines)
	if err != nil {
		monitoring.Logf("[ingest] could not read sample from %s: %v", first, err)
	}
	return resolver.Resolve(ctx, sample)
}

// processFile chunks one source file. It returns the file's log entry and
// the parsed series.
func (in *Ingester) processFile(ctx context.Context, req Request, rep *Report, alloc *dataset.Allocator, path string) (FileResult, signal.RawSeries) {
	rel := relPath(req.Folder, path)
	res := FileResult{Path: rel}

	f, err := in.Store.FS().Open(path)
	if err != nil {
		res.Status, res.Err = StatusError, err.Error()
		monitoring.Logf("[ingest] [ERROR] %s: %v", rel, err)
		return res, signal.RawSeries{}
	}
	raw, err := sensorcsv.Read(f, rep.Structure)
	f.Close()
	if err != nil {
		res.Status, res.Err = StatusError, err.Error()
		monitoring.Logf("[ingest] [ERROR] %s: %v", rel, err)
		return res, signal.RawSeries{}
	}

	waves, _, err := signal.Process(raw, req.Config)
	if err != nil {
		res.Err = err.Error()
		if errors.Is(err, signal.ErrInvalidSeries) || errors.Is(err, signal.ErrInsufficientData) {
			res.Status = StatusSkip
			monitoring.Logf("[ingest] [SKIP] %s: %v", rel, err)
		} else {
			res.Status = StatusError
			monitoring.Logf("[ingest] [ERROR] %s: %v", rel, err)
		}
		return res, raw
	}

	for _, w := range waves {
		if ctx.Err() != nil {
			break
		}
		if _, err := in.Store.WriteChunk(req.Label, alloc.Next(), rep.Structure.ValuesLabel, req.Config, w); err != nil {
			rep.WriteFailures++
			monitoring.Logf("[ingest] [ERROR] %s: %v", rel, err)
			continue
		}
		if _, err := alloc.Commit(); err != nil {
			monitoring.Logf("[ingest] [ERROR] %s: %v", rel, err)
		}
		res.Chunks++
	}

	switch {
	case res.Chunks > 0:
		res.Status = StatusOK
		monitoring.Logf("[ingest] [OK] %s (%d chunks)", rel, res.Chunks)
	case ctx.Err() != nil:
		res.Status = StatusSkip
		res.Err = ctx.Err().Error()
	default:
		res.Status = StatusError
		res.Err = "no chunk could be written"
	}
	return res, raw
}

func (in *Ingester) writeMetadata(req Request, rep *Report, sourceFiles []string, sample signal.RawSeries) error {
	size, err := in.Store.FolderSize(req.Label)
	if err != nil {
		return err
	}
	rawFolder := rep.RawBackup
	if rawFolder == "" {
		if prev, err := in.Store.LoadMetadata(req.Label); err == nil {
			rawFolder = prev.RawFolder
		}
	}
	md := dataset.GenerateMetadata(dataset.MetadataInput{
		Label:           req.Label,
		SourceFolder:    req.Folder,
		RawFolder:       rawFolder,
		SourceFiles:     sourceFiles,
		Structure:       rep.Structure,
		Config:          req.Config,
		FirstChunkID:    rep.FirstID,
		LastChunkID:     rep.LastID,
		TotalChunks:     rep.TotalChunks,
		Sample:          sample,
		FolderSizeBytes: size,
		GeneratedAt:     in.Store.Clock().Now(),
	})
	return in.Store.SaveMetadata(req.Label, md)
}

func relPath(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}
