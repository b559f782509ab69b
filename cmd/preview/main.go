// Command preview runs one CSV file through the pipeline without writing to
// the dataset store. It prints the processing metadata and can draw the
// chunks as a PNG or an interactive HTML page.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/sensorset/internal/config"
	"github.com/banshee-data/sensorset/internal/inference"
	"github.com/banshee-data/sensorset/internal/preview"
	"github.com/banshee-data/sensorset/internal/sensorcsv"
)

func main() {
	input := flag.String("in", "", "CSV file to process (required)")
	configFile := flag.String("config", "", "path to JSON configuration file")
	envFile := flag.String("env", ".env", "optional .env file providing GEMINI_API_KEY")
	pngOut := flag.String("png", "", "write a PNG of the processed chunks to this path")
	htmlOut := flag.String("html", "", "write an HTML chart of the processed chunks to this path")
	withRaw := flag.Bool("raw", false, "also draw the source series in its own PNG/HTML next to the chunk previews")
	classify := flag.Bool("classify", false, "send the chunks to the configured model_url")
	flag.Parse()

	if *input == "" {
		log.Fatalf("-in is required")
	}
	cfg := config.EmptyConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadConfig(*configFile); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if err := config.LoadEnv(*envFile); err != nil {
		log.Fatalf("failed to load %s: %v", *envFile, err)
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	ctx := context.Background()
	p := &inference.Processor{Config: cfg.PipelineConfig(), Resolver: cfg.Resolver(ctx)}
	res, err := p.Process(ctx, filepath.Base(*input), data)
	if err != nil {
		log.Fatalf("process: %v", err)
	}

	out := struct {
		Metadata   inference.ProcessingMetadata `json:"metadata"`
		Prediction *inference.Prediction        `json:"prediction,omitempty"`
	}{Metadata: res.Metadata}

	if *classify {
		url := cfg.GetModelURL()
		if url == "" {
			log.Fatalf("-classify needs model_url in the config")
		}
		pred, err := inference.Classify(ctx, inference.NewRemoteModel(url), res, cfg.ClassNames)
		if err != nil {
			log.Fatalf("classify: %v", err)
		}
		out.Prediction = pred
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}

	if *pngOut == "" && *htmlOut == "" {
		return
	}
	o := preview.Options{Title: res.Metadata.SourceFile, Subtitle: res.Metadata.CSVStructure.ValuesLabel}
	series := preview.WaveformSeries("chunk", p.Config, res.Waveforms)

	if *pngOut != "" {
		if err := preview.SavePNG(*pngOut, o, series...); err != nil {
			log.Fatalf("png: %v", err)
		}
		log.Printf("✓ Created: %s", *pngOut)
	}
	if *htmlOut != "" {
		if err := writeHTMLFile(*htmlOut, o, series); err != nil {
			log.Fatalf("html: %v", err)
		}
		log.Printf("✓ Created: %s", *htmlOut)
	}

	if *withRaw {
		raw, err := sensorcsv.ReadBytes(data, res.Metadata.CSVStructure)
		if err != nil {
			log.Fatalf("read raw series: %v", err)
		}
		rawSeries := preview.RawSeries(res.Metadata.CSVStructure.ValuesLabel, raw)
		ro := preview.Options{Title: res.Metadata.SourceFile + " (raw)"}
		if *pngOut != "" {
			path := rawPath(*pngOut)
			if err := preview.SavePNG(path, ro, rawSeries); err != nil {
				log.Fatalf("raw png: %v", err)
			}
			log.Printf("✓ Created: %s", path)
		}
		if *htmlOut != "" {
			path := rawPath(*htmlOut)
			if err := writeHTMLFile(path, ro, []preview.Series{rawSeries}); err != nil {
				log.Fatalf("raw html: %v", err)
			}
			log.Printf("✓ Created: %s", path)
		}
	}
}

func writeHTMLFile(path string, o preview.Options, series []preview.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := preview.WriteHTML(f, o, series...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// rawPath turns chunks.png into chunks_raw.png.
func rawPath(path string) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_raw%s", path[:len(path)-len(ext)], ext)
}
