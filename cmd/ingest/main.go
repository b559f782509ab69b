// Command ingest imports a folder of sensor CSV files into a label of the
// dataset store, the same way a POST /api/ingest job does.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/sensorset/internal/config"
	"github.com/banshee-data/sensorset/internal/dataset"
	"github.com/banshee-data/sensorset/internal/db"
	"github.com/banshee-data/sensorset/internal/fsutil"
	"github.com/banshee-data/sensorset/internal/ingest"
	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/structure"
)

func main() {
	var (
		folder     string
		label      string
		modeStr    string
		configFile string
		dbPath     string
		envFile    string
		structJSON string
		recursive  bool
		backupRaw  bool
		noHistory  bool
		debug      bool
	)
	flag.StringVar(&folder, "folder", "", "folder of CSV files to import (required)")
	flag.StringVar(&label, "label", "", "classification label; defaults to one derived from the folder name")
	flag.StringVar(&modeStr, "mode", "append", "append or overwrite")
	flag.StringVar(&configFile, "config", "", "path to JSON configuration file")
	flag.StringVar(&dbPath, "db-path", "", "run history database (overrides config)")
	flag.StringVar(&envFile, "env", ".env", "optional .env file providing GEMINI_API_KEY")
	flag.StringVar(&structJSON, "structure", "", `CSV structure override, e.g. '{"skip_rows":1,"time_column":0,"values_column":2,"values_label":"Accel"}'`)
	flag.BoolVar(&recursive, "recursive", false, "include CSV files in subfolders")
	flag.BoolVar(&backupRaw, "backup-raw", false, "copy the source folder into the raw directory first")
	flag.BoolVar(&noHistory, "no-history", false, "do not record the run in the history database")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	if folder == "" {
		log.Fatalf("-folder is required")
	}
	if label == "" {
		label = dataset.SuggestLabel(folder)
		log.Printf("using label %q", label)
	}
	mode, err := dataset.ParseMode(modeStr)
	if err != nil {
		log.Fatalf("invalid -mode: %v", err)
	}
	override, err := parseStructure(structJSON)
	if err != nil {
		log.Fatalf("invalid -structure: %v", err)
	}

	cfg := config.EmptyConfig()
	if configFile != "" {
		if cfg, err = config.LoadConfig(configFile); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if dbPath != "" {
		cfg.DBPath = &dbPath
	}
	monitoring.SetDebug(debug || cfg.GetDebug())
	if err := config.LoadEnv(envFile); err != nil {
		log.Fatalf("failed to load %s: %v", envFile, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := dataset.NewStore(fsutil.OSFileSystem{}, cfg.GetDatasetDir(), cfg.GetRawDir())
	in := ingest.New(store)
	in.Resolver = cfg.Resolver(ctx)
	if !noHistory {
		database, err := db.NewDB(cfg.GetDBPath())
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer database.Close()
		in.Recorder = database
	}

	req := ingest.Request{
		Folder:    folder,
		Label:     label,
		Mode:      mode,
		Config:    cfg.PipelineConfig(),
		Recursive: recursive,
		Structure: override,
		BackupRaw: backupRaw,
	}
	rep, err := in.Run(ctx, req, func(p ingest.Progress) {
		monitoring.Debugf("%d/%d files, %d chunks (%s)", p.FilesDone, p.FilesTotal, p.Chunks, p.Current)
	})
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
	printReport(os.Stdout, rep)
	if rep.Cancelled {
		os.Exit(130)
	}
}

func parseStructure(s string) (*structure.CSVStructure, error) {
	if s == "" {
		return nil, nil
	}
	var cs structure.CSVStructure
	if err := json.Unmarshal([]byte(s), &cs); err != nil {
		return nil, err
	}
	if cs.ValuesLabel == "" {
		cs.ValuesLabel = structure.Default().ValuesLabel
	}
	cs = cs.Clamp()
	return &cs, nil
}

func printReport(w io.Writer, rep *ingest.Report) {
	for _, f := range rep.Files {
		switch f.Status {
		case ingest.StatusOK:
			fmt.Fprintf(w, "  ✓ %-40s %4d chunks\n", f.Path, f.Chunks)
		default:
			fmt.Fprintf(w, "  ✗ %-40s %s: %s\n", f.Path, f.Status, f.Err)
		}
	}
	fmt.Fprintf(w, "label:      %s (%s mode)\n", rep.Label, rep.Mode)
	fmt.Fprintf(w, "structure:  skip_rows=%d time_column=%d values_column=%d values_label=%q (%s)\n",
		rep.Structure.SkipRows, rep.Structure.TimeColumn, rep.Structure.ValuesColumn, rep.Structure.ValuesLabel, rep.StructureSource)
	fmt.Fprintf(w, "files:      %d ok, %d skipped, %d failed\n",
		rep.Count(ingest.StatusOK), rep.Count(ingest.StatusSkip), rep.Count(ingest.StatusError))
	if rep.TotalChunks > 0 {
		fmt.Fprintf(w, "chunks:     %d (IDs %04d-%04d)\n", rep.TotalChunks, rep.FirstID, rep.LastID)
	} else {
		fmt.Fprintln(w, "chunks:     0")
	}
	if rep.WriteFailures > 0 {
		fmt.Fprintf(w, "failures:   %d chunk writes\n", rep.WriteFailures)
	}
	if rep.RawBackup != "" {
		fmt.Fprintf(w, "raw backup: %s\n", rep.RawBackup)
	}
	if rep.Cancelled {
		fmt.Fprintln(w, "cancelled before completion")
	}
}
