package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/sensorset/internal/ingest"
	"github.com/banshee-data/sensorset/internal/signal"
	"github.com/banshee-data/sensorset/internal/structure"
)

// ErrRunNotFound is returned by GetRun for unknown IDs.
var ErrRunNotFound = errors.New("ingestion run not found")

// Run is one persisted ingestion run.
type Run struct {
	RunID            string                 `json:"run_id"`
	Label            string                 `json:"label"`
	SourceFolder     string                 `json:"source_folder"`
	Mode             string                 `json:"mode"`
	Structure        structure.CSVStructure `json:"structure"`
	StructureSource  string                 `json:"structure_source"`
	Config           signal.Config          `json:"config"`
	RawBackup        string                 `json:"raw_backup,omitempty"`
	TotalChunks      int                    `json:"total_chunks"`
	FirstChunkID     int                    `json:"first_chunk_id,omitempty"`
	LastChunkID      int                    `json:"last_chunk_id,omitempty"`
	SourceFilesCount int                    `json:"source_files_count"`
	WriteFailures    int                    `json:"write_failures"`
	Cancelled        bool                   `json:"cancelled"`
	StartedAt        time.Time              `json:"started_at"`
	FinishedAt       time.Time              `json:"finished_at"`
	Files            []RunFile              `json:"files,omitempty"`
}

// RunFile is the outcome of one source file within a run.
type RunFile struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
	Error  string `json:"error,omitempty"`
}

// RunFromReport converts an ingestion report into a Run without an ID.
func RunFromReport(rep *ingest.Report) Run {
	r := Run{
		Label:            rep.Label,
		SourceFolder:     rep.Folder,
		Mode:             rep.Mode.String(),
		Structure:        rep.Structure,
		StructureSource:  rep.StructureSource,
		Config:           rep.Config,
		RawBackup:        rep.RawBackup,
		TotalChunks:      rep.TotalChunks,
		FirstChunkID:     rep.FirstID,
		LastChunkID:      rep.LastID,
		SourceFilesCount: rep.SourceFilesCount,
		WriteFailures:    rep.WriteFailures,
		Cancelled:        rep.Cancelled,
		StartedAt:        rep.StartedAt,
		FinishedAt:       rep.FinishedAt,
	}
	for _, f := range rep.Files {
		r.Files = append(r.Files, RunFile{Path: f.Path, Status: string(f.Status), Chunks: f.Chunks, Error: f.Err})
	}
	return r
}

// RecordRun implements ingest.Recorder.
func (db *DB) RecordRun(ctx context.Context, rep *ingest.Report) error {
	r := RunFromReport(rep)
	return db.InsertRun(ctx, &r)
}

// InsertRun stores r and its files in one transaction. An empty RunID is
// filled with a new UUID.
func (db *DB) InsertRun(ctx context.Context, r *Run) error {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	structJSON, err := json.Marshal(r.Structure)
	if err != nil {
		return err
	}
	cfgJSON, err := json.Marshal(r.Config)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ingestion_runs (
			run_id, label, source_folder, mode, structure_json, structure_source,
			config_json, raw_backup, total_chunks, first_chunk_id, last_chunk_id,
			source_files_count, write_failures, cancelled, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Label, r.SourceFolder, r.Mode, string(structJSON), r.StructureSource,
		string(cfgJSON), nullString(r.RawBackup), r.TotalChunks,
		nullInt(r.FirstChunkID), nullInt(r.LastChunkID),
		r.SourceFilesCount, r.WriteFailures, r.Cancelled,
		formatTime(r.StartedAt), formatTime(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}

	for i, f := range r.Files {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ingestion_files (run_id, seq, path, status, chunks, error) VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, i, f.Path, f.Status, f.Chunks, nullString(f.Error))
		if err != nil {
			return fmt.Errorf("insert run file %s: %w", f.Path, err)
		}
	}
	return tx.Commit()
}

const runColumns = `run_id, label, source_folder, mode, structure_json, structure_source,
	config_json, raw_backup, total_chunks, first_chunk_id, last_chunk_id,
	source_files_count, write_failures, cancelled, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var (
		r                 Run
		structJSON        string
		cfgJSON           string
		rawBackup         sql.NullString
		firstID, lastID   sql.NullInt64
		started, finished string
	)
	err := s.Scan(&r.RunID, &r.Label, &r.SourceFolder, &r.Mode, &structJSON, &r.StructureSource,
		&cfgJSON, &rawBackup, &r.TotalChunks, &firstID, &lastID,
		&r.SourceFilesCount, &r.WriteFailures, &r.Cancelled, &started, &finished)
	if err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(structJSON), &r.Structure); err != nil {
		return Run{}, fmt.Errorf("run %s structure: %w", r.RunID, err)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
		return Run{}, fmt.Errorf("run %s config: %w", r.RunID, err)
	}
	r.RawBackup = rawBackup.String
	r.FirstChunkID = int(firstID.Int64)
	r.LastChunkID = int(lastID.Int64)
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns runs newest first, optionally filtered by label. A
// non-positive limit returns every run.
func (db *DB) ListRuns(ctx context.Context, label string, limit int) ([]Run, error) {
	q := `SELECT ` + runColumns + ` FROM ingestion_runs`
	var args []any
	if label != "" {
		q += ` WHERE label = ?`
		args = append(args, label)
	}
	q += ` ORDER BY started_at DESC, run_id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the run with id including its files.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM ingestion_runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT path, status, chunks, error FROM ingestion_files WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var f RunFile
		var msg sql.NullString
		if err := rows.Scan(&f.Path, &f.Status, &f.Chunks, &msg); err != nil {
			return nil, err
		}
		f.Error = msg.String
		r.Files = append(r.Files, f)
	}
	return &r, rows.Err()
}

// DeleteRunsForLabel removes the history of label and returns how many runs
// were deleted.
func (db *DB) DeleteRunsForLabel(ctx context.Context, label string) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM ingestion_runs WHERE label = ?`, label)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func nullInt(v int) sql.NullInt64 { return sql.NullInt64{Int64: int64(v), Valid: v != 0} }
