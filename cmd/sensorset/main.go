// Command sensorset serves the dataset API: label browsing, background
// ingestion jobs, inference-style processing and the run history database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/sensorset/internal/api"
	"github.com/banshee-data/sensorset/internal/config"
	"github.com/banshee-data/sensorset/internal/dataset"
	"github.com/banshee-data/sensorset/internal/db"
	"github.com/banshee-data/sensorset/internal/fsutil"
	"github.com/banshee-data/sensorset/internal/inference"
	"github.com/banshee-data/sensorset/internal/ingest"
	"github.com/banshee-data/sensorset/internal/jobs"
	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to JSON configuration file (defaults apply when empty)")
	listen      = flag.String("listen", "", "Listen address (overrides config)")
	dbPathFlag  = flag.String("db-path", "", "Path to the SQLite run history database (overrides config)")
	envFile     = flag.String("env", ".env", "Optional .env file providing GEMINI_API_KEY")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// shutdownTimeout bounds the HTTP drain and the wait for running jobs.
const shutdownTimeout = 10 * time.Second

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Println("sensorset", version.Get())
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyFlags(cfg)

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "migrate":
			if err := db.RunMigrateCommand(flag.Args()[1:], cfg.GetDBPath(), os.Stdout); err != nil {
				log.Fatalf("migrate: %v", err)
			}
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", flag.Arg(0))
			printUsage()
			os.Exit(1)
		}
	}

	if err := config.LoadEnv(*envFile); err != nil {
		log.Fatalf("failed to load %s: %v", *envFile, err)
	}
	monitoring.SetDebug(cfg.GetDebug())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.GetDatasetDir(), cfg.GetRawDir(), filepath.Dir(cfg.GetDBPath())} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	store := dataset.NewStore(fsutil.OSFileSystem{}, cfg.GetDatasetDir(), cfg.GetRawDir())
	resolver := cfg.Resolver(ctx)

	in := ingest.New(store)
	in.Resolver = resolver
	in.Recorder = database

	manager := jobs.NewManager(in, jobs.WithRetention(cfg.GetJobRetention()))
	manager.StartPruner(ctx, cfg.GetPruneInterval())

	opts := api.Options{
		Store:      store,
		Jobs:       manager,
		DB:         database,
		Resolver:   resolver,
		Config:     cfg.PipelineConfig(),
		ImportDirs: cfg.ImportDirs,
	}
	if url := cfg.GetModelURL(); url != "" {
		opts.Model = inference.NewRemoteModel(url)
		opts.ClassNames = cfg.ClassNames
		log.Printf("classifying /api/process results with %s (%d classes)", url, len(cfg.ClassNames))
	}

	var wg sync.WaitGroup

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(opts).ServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    cfg.GetListen(),
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("sensorset %s listening on %s", version.Version, cfg.GetListen())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish, then stop any ingestion still running
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Printf("job manager shutdown: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

func loadConfig(path string) (*config.ServiceConfig, error) {
	if path == "" {
		return config.EmptyConfig(), nil
	}
	return config.LoadConfig(path)
}

// applyFlags lets command-line flags override the loaded configuration.
func applyFlags(cfg *config.ServiceConfig) {
	if *listen != "" {
		cfg.Listen = listen
	}
	if *dbPathFlag != "" {
		cfg.DBPath = dbPathFlag
	}
	if *debug {
		cfg.Debug = debug
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `sensorset - sensor dataset service

Usage:
  sensorset [flags]                   Serve the HTTP API
  sensorset [flags] migrate <action>  Manage the run history schema (see "migrate help")

Flags:`)
	flag.PrintDefaults()
}
