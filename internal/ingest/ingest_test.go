package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorset/internal/dataset"
	"github.com/banshee-data/sensorset/internal/fsutil"
	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/sensorcsv"
	"github.com/banshee-data/sensorset/internal/signal"
	"github.com/banshee-data/sensorset/internal/structure"
	"github.com/banshee-data/sensorset/internal/testutil"
	"github.com/banshee-data/sensorset/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

const importDir = "/imports/run"

func smallConfig() signal.Config {
	return signal.Config{TimeInterval: 0.1, ChunkDuration: 1, PaddingDuration: 0.5, TargetRate: 20}
}

type fixture struct {
	fs    *fsutil.MemoryFileSystem
	store *dataset.Store
	in    *Ingester
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	clock := timeutil.NewMockClock(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	store := dataset.NewStore(mfs, "/data/database", "/data/raw", dataset.WithClock(clock))
	return &fixture{fs: mfs, store: store, in: New(store)}
}

func (f *fixture) put(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, f.fs.WriteFile(filepath.Join(importDir, name), []byte(content), 0o644))
}

// chunksFor runs the pipeline directly to learn how many chunks a file yields.
func chunksFor(t *testing.T, content string) int {
	t.Helper()
	raw, err := sensorcsv.ReadBytes([]byte(content), structure.Default())
	require.NoError(t, err)
	waves, _, err := signal.Process(raw, smallConfig())
	require.NoError(t, err)
	return len(waves)
}

func request(label string, mode dataset.Mode) Request {
	return Request{Folder: importDir, Label: label, Mode: mode, Config: smallConfig()}
}

func TestRunExcludesFilesWithoutChunks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	a := testutil.SimpleCSV(100, 3)
	b := testutil.SimpleCSV(100, 2.5)
	f.put(t, "a.csv", a)
	f.put(t, "b.csv", b)
	f.put(t, "c.csv", "Time,Value\n0,1\n")
	f.put(t, "notes.txt", "ignored")
	want := chunksFor(t, a) + chunksFor(t, b)

	rep, err := f.in.Run(context.Background(), request("crack", dataset.ModeAppend), nil)
	require.NoError(t, err)

	require.Len(t, rep.Files, 3)
	assert.Equal(t, StatusOK, rep.Files[0].Status)
	assert.Equal(t, StatusOK, rep.Files[1].Status)
	assert.Equal(t, StatusSkip, rep.Files[2].Status)
	assert.Equal(t, "c.csv", rep.Files[2].Path)
	assert.NotEmpty(t, rep.Files[2].Err)

	assert.Equal(t, want, rep.TotalChunks)
	assert.Equal(t, 1, rep.FirstID)
	assert.Equal(t, want, rep.LastID)
	assert.Equal(t, 2, rep.SourceFilesCount)
	assert.Equal(t, "fallback", rep.StructureSource)
	assert.False(t, rep.Cancelled)

	md, err := f.store.LoadMetadata("crack")
	require.NoError(t, err)
	assert.Equal(t, 2, md.Dataset.SourceFilesCount)
	assert.Equal(t, want, md.Dataset.TotalChunks)
	assert.Equal(t, "run", md.SourceFolder)
	assert.Equal(t, "100.00 Hz", md.SampleStatistics.OriginalSamplingRate)

	ids, err := f.store.ScanChunkIDs("crack")
	require.NoError(t, err)
	assert.Len(t, ids, want)
}

func TestRunAppendAndOverwrite(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := testutil.SimpleCSV(100, 3)
	f.put(t, "a.csv", a)
	n := chunksFor(t, a)

	ctx := context.Background()
	_, err := f.in.Run(ctx, request("beam", dataset.ModeAppend), nil)
	require.NoError(t, err)

	rep, err := f.in.Run(ctx, request("beam", dataset.ModeAppend), nil)
	require.NoError(t, err)
	assert.Equal(t, n+1, rep.FirstID)
	assert.Equal(t, 2*n, rep.LastID)

	for range 2 {
		rep, err = f.in.Run(ctx, request("beam", dataset.ModeOverwrite), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, rep.FirstID)
		assert.Equal(t, n, rep.LastID)
	}
	ids, err := f.store.ScanChunkIDs("beam")
	require.NoError(t, err)
	assert.Len(t, ids, n)
}

func TestRunCancellationStopsBetweenFiles(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := testutil.SimpleCSV(100, 3)
	f.put(t, "a.csv", a)
	f.put(t, "b.csv", a)
	f.put(t, "c.csv", a)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var seen []Progress
	rep, err := f.in.Run(ctx, request("stop", dataset.ModeAppend), func(p Progress) {
		seen = append(seen, p)
		cancel()
	})
	require.NoError(t, err)

	assert.True(t, rep.Cancelled)
	require.Len(t, rep.Files, 1)
	assert.Equal(t, chunksFor(t, a), rep.TotalChunks)
	require.Len(t, seen, 1)
	assert.Equal(t, 3, seen[0].FilesTotal)

	md, err := f.store.LoadMetadata("stop")
	require.NoError(t, err)
	assert.Equal(t, 1, md.Dataset.SourceFilesCount)
}

func TestRunRecordsMalformedFiles(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.put(t, "a.csv", testutil.SimpleCSV(100, 3))
	f.put(t, "b.csv", "Time,Value\n0,1\n0.01,oops\n")

	rep, err := f.in.Run(context.Background(), request("mixed", dataset.ModeAppend), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(StatusOK))
	assert.Equal(t, 1, rep.Count(StatusError))
	assert.Contains(t, rep.Files[1].Err, "not a number")
}

func TestValidateIsEager(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	require.NoError(t, f.fs.MkdirAll("/imports/empty", 0o755))
	f.put(t, "a.csv", testutil.SimpleCSV(100, 3))

	bad := smallConfig()
	bad.TargetRate = 0

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"bad label", Request{Folder: importDir, Label: "../x", Config: smallConfig()}, dataset.ErrInvalidLabel},
		{"reserved label", Request{Folder: importDir, Label: "raw", Config: smallConfig()}, dataset.ErrInvalidLabel},
		{"bad config", Request{Folder: importDir, Label: "ok", Config: bad}, signal.ErrInvalidConfig},
		{"missing folder", Request{Folder: "/nope", Label: "ok", Config: smallConfig()}, ErrFolderNotFound},
		{"file not folder", Request{Folder: importDir + "/a.csv", Label: "ok", Config: smallConfig()}, ErrFolderNotFound},
		{"no csv", Request{Folder: "/imports/empty", Label: "ok", Config: smallConfig()}, ErrNoCSVFiles},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep, err := f.in.Run(context.Background(), tc.req, nil)
			assert.Nil(t, rep)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	labels, err := f.store.Labels()
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestRunWithStructureOverrideAndBackup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	content := testutil.SensorCSV(testutil.CSVOptions{
		Rate:     100,
		Duration: 3,
		Preamble: []string{"logger v2", "unit: g"},
		Header:   "idx,time,accel",
		Columns:  3,
	})
	f.put(t, "a.csv", content)

	req := request("gear", dataset.ModeAppend)
	req.BackupRaw = true
	req.Structure = &structure.CSVStructure{SkipRows: 2, TimeColumn: 0, ValuesColumn: 1, ValuesLabel: "Accel"}

	rep, err := f.in.Run(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "request", rep.StructureSource)
	assert.Equal(t, "/data/raw/run", rep.RawBackup)
	assert.Positive(t, rep.TotalChunks)
	assert.True(t, f.fs.Exists("/data/raw/run/a.csv"))
	assert.True(t, f.fs.Exists("/data/raw/run/"+dataset.MetadataFilename))

	md, err := f.store.LoadMetadata("gear")
	require.NoError(t, err)
	assert.Equal(t, "Accel", md.MeasurementType)

	rec, err := f.store.ReadChunk("gear", dataset.ChunkFileName("gear", 1))
	require.NoError(t, err)
	assert.Equal(t, "Accel", rec.ValuesLabel)
}

func TestRunBackupsWithSameFolderName(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	csv := testutil.SimpleCSV(100, 3)
	require.NoError(t, f.fs.WriteFile("/a/session/a.csv", []byte(csv), 0o644))
	require.NoError(t, f.fs.WriteFile("/b/session/b.csv", []byte(csv), 0o644))

	ctx := context.Background()
	run := func(folder, label string) *Report {
		req := Request{Folder: folder, Label: label, Config: smallConfig(), BackupRaw: true}
		rep, err := f.in.Run(ctx, req, nil)
		require.NoError(t, err)
		return rep
	}
	alpha := run("/a/session", "alpha")
	beta := run("/b/session", "beta")
	assert.Equal(t, "/data/raw/session", alpha.RawBackup)
	assert.Equal(t, "/data/raw/session(1)", beta.RawBackup)

	md, err := f.store.LoadMetadata("beta")
	require.NoError(t, err)
	assert.Equal(t, "session", md.SourceFolder)
	assert.Equal(t, "session(1)", md.RawFolder)

	res, err := f.store.Delete("beta", true)
	require.NoError(t, err)
	assert.Equal(t, "/data/raw/session(1)", res.RawPath)
	assert.True(t, f.fs.Exists("/data/raw/session/a.csv"), "alpha's backup must survive")
	assert.False(t, f.fs.Exists("/data/raw/session(1)"))

	// A later run without a backup keeps pointing at the label's backup.
	_, err = f.in.Run(ctx, Request{Folder: "/a/session", Label: "alpha", Config: smallConfig()}, nil)
	require.NoError(t, err)
	md, err = f.store.LoadMetadata("alpha")
	require.NoError(t, err)
	assert.Equal(t, "session", md.RawFolder)
}

func TestRunOverwriteWithoutChunksKeepsLabel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := testutil.SimpleCSV(100, 3)
	f.put(t, "a.csv", a)
	n := chunksFor(t, a)

	ctx := context.Background()
	_, err := f.in.Run(ctx, request("x", dataset.ModeAppend), nil)
	require.NoError(t, err)
	before, err := f.store.LoadMetadata("x")
	require.NoError(t, err)

	require.NoError(t, f.fs.WriteFile("/imports/short/a.csv", []byte("Time,Value\n0,1\n"), 0o644))
	req := request("x", dataset.ModeOverwrite)
	req.Folder = "/imports/short"
	rep, err := f.in.Run(ctx, req, nil)
	require.NoError(t, err)
	assert.Zero(t, rep.TotalChunks)

	info, err := f.store.Info("x")
	require.NoError(t, err)
	assert.Equal(t, n, info.Chunks)
	require.NotNil(t, info.Metadata)
	assert.Equal(t, n, info.Metadata.Dataset.TotalChunks)
	assert.True(t, before.StatisticallyEqual(*info.Metadata))
}

func TestRunUsesPrimaryDetector(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.put(t, "a.csv", testutil.SimpleCSV(100, 3))

	var got []string
	f.in.Resolver = structure.NewResolver(structure.DetectorFunc(func(_ context.Context, sample []string) (structure.CSVStructure, error) {
		got = sample
		return structure.CSVStructure{TimeColumn: 0, ValuesColumn: 1, ValuesLabel: "Strain"}, nil
	}))

	rep, err := f.in.Run(context.Background(), request("strain", dataset.ModeAppend), nil)
	require.NoError(t, err)
	assert.Equal(t, "primary", rep.StructureSource)
	assert.Equal(t, "Strain", rep.Structure.ValuesLabel)
	require.Len(t, got, structure.SampleLines)
	assert.Equal(t, "Time,Value", got[0])
}

type memRecorder struct {
	mu      sync.Mutex
	reports []*Report
	err     error
}

func (m *memRecorder) RecordRun(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return m.err
}

func TestRunNotifiesRecorder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.put(t, "a.csv", testutil.SimpleCSV(100, 3))
	rec := &memRecorder{err: errors.New("db down")}
	f.in.Recorder = rec

	rep, err := f.in.Run(context.Background(), request("rec", dataset.ModeAppend), nil)
	require.NoError(t, err, "recorder failures are logged, not returned")
	require.Len(t, rec.reports, 1)
	assert.Same(t, rep, rec.reports[0])
	assert.False(t, rep.FinishedAt.IsZero())
}
