// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/spark-engine/internal/export"
	"github.com/pdiddy/spark-engine/internal/extract"
	"github.com/pdiddy/spark-engine/internal/ingest"
	"github.com/pdiddy/spark-engine/internal/llm"
	"github.com/pdiddy/spark-engine/internal/store"
	"github.com/pdiddy/spark-engine/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract <references-file>",
	Short: "Run schema-guided extraction over a references file",
	Long: `Extract ingests a RIS or CSV references file, sends every record's title
and abstract to the configured LLM backend, and writes the resulting
table of extracted entity values. A record that fails extraction is
marked failed in the output; the batch continues.

The backend is chosen from --backend, then from keys found in .secrets/
(openai-api-key, anthropic-api-key), falling back to a local Ollama
server.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	schemaPath, _ := cmd.Flags().GetString("schema")
	schema, err := ingest.LoadSchema(schemaPath)
	if err != nil {
		return err
	}

	records, err := ingestRecords(cmd, inputPath)
	if err != nil {
		return err
	}

	summary := ingest.Summarize(records)
	fmt.Fprintf(os.Stderr, "Loaded %d records (%d with title, %d with abstract)\n",
		summary.Total, summary.WithTitle, summary.WithAbstract)

	cfg, err := extractionConfig(cmd)
	if err != nil {
		return err
	}
	backend, err := llm.New(cfg.AIConfig)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Backend: %s, model: %s, workers: %d\n",
		backend.Name(), cfg.Model, cfg.Workers)

	ctx, stop := signalContext()
	defer stop()

	table, err := extract.RunBatch(ctx, backend, schema, records, extract.Options{
		Workers: cfg.Workers,
		Log:     os.Stderr,
		Progress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rProgress: %d/%d", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		},
	})
	if err != nil {
		return err
	}

	if err := writeResults(cmd, table, schema); err != nil {
		return err
	}

	stats := extract.Summarize(table, schema)
	printStats(os.Stderr, stats, schema)

	if save, _ := cmd.Flags().GetBool("save"); save {
		db, err := store.Open(types.StoreConfig{ResultsDir: resultsDir(cmd)})
		if err != nil {
			return err
		}
		defer db.Close()

		runID, err := db.SaveRun(context.Background(), schema, backend.Name(), cfg.Model, table)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved run %s\n", runID)
	}

	return nil
}

// ingestRecords parses the references file, detecting the format from the
// extension unless --format or the config file overrides it.
func ingestRecords(cmd *cobra.Command, path string) ([]types.Record, error) {
	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag == "" {
		formatFlag = string(pipelineConfig().Ingest.Format)
	}

	var format types.IngestFormat
	if formatFlag != "" {
		format = types.IngestFormat(formatFlag)
	} else {
		detected, err := ingest.DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening references file: %w", err)
	}
	defer f.Close()

	return ingest.Parse(f, format)
}

// extractionConfig assembles the backend configuration. Precedence: flags,
// then the config file, then secrets-based backend detection.
func extractionConfig(cmd *cobra.Command) (types.ExtractionConfig, error) {
	cfg := pipelineConfig().Extraction

	if backendName, _ := cmd.Flags().GetString("backend"); backendName != "" {
		cfg.Backend = backendName
	}
	if apiKey, _ := cmd.Flags().GetString("api-key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	if cfg.Backend == "" {
		detected, detectedKey := llm.Detect(loadedSecrets)
		cfg.Backend = detected
		if cfg.APIKey == "" {
			cfg.APIKey = detectedKey
		}
	}

	switch cfg.Backend {
	case "openai":
		cfg.APIKey = secretDefault("openai-api-key", cfg.APIKey)
	case "anthropic":
		cfg.APIKey = secretDefault("anthropic-api-key", cfg.APIKey)
	}

	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Model = model
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if maxTokens, _ := cmd.Flags().GetInt("max-tokens"); maxTokens > 0 {
		cfg.MaxTokens = maxTokens
	}
	if cmd.Flags().Changed("timeout") || cfg.Timeout == 0 {
		cfg.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	if cmd.Flags().Changed("workers") || cfg.Workers == 0 {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}

	if cfg.Workers < 1 {
		return types.ExtractionConfig{}, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	return cfg, nil
}

// writeResults writes the output table in the requested format, to stdout or
// to --output.
func writeResults(cmd *cobra.Command, table types.OutputTable, schema *types.Schema) error {
	outPath, _ := cmd.Flags().GetString("output")
	outFormat, _ := cmd.Flags().GetString("output-format")

	w := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch outFormat {
	case "csv", "":
		if err := export.WriteCSV(w, table, schema); err != nil {
			return err
		}
	case "json":
		if err := export.WriteJSON(w, table); err != nil {
			return err
		}
	case "yaml":
		if err := export.WriteYAML(w, table); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported output format %q: use csv, json, or yaml", outFormat)
	}

	if outPath != "" {
		fmt.Fprintf(os.Stderr, "Wrote results to %s\n", outPath)
	}
	return nil
}

func init() {
	extractCmd.Flags().String("schema", "schema.json", "path to the extraction schema JSON file")
	extractCmd.Flags().String("format", "", "input format: ris or csv (default: detect from extension)")
	extractCmd.Flags().String("backend", "", "LLM backend: openai, anthropic, or ollama (default: detect from secrets)")
	extractCmd.Flags().String("model", "", "model identifier (default: backend-specific)")
	extractCmd.Flags().String("api-key", "", "API key (default: from .secrets/)")
	extractCmd.Flags().String("base-url", "", "backend endpoint override")
	extractCmd.Flags().Int("max-tokens", 0, "response token cap per call (0 = backend default)")
	extractCmd.Flags().Duration("timeout", 120*time.Second, "per-call HTTP timeout")
	extractCmd.Flags().Int("workers", 1, "concurrent extraction calls")
	extractCmd.Flags().String("output", "", "output file (default: stdout)")
	extractCmd.Flags().String("output-format", "csv", "output format: csv, json, or yaml")
	extractCmd.Flags().Bool("save", false, "persist the run to the results store")
	extractCmd.Flags().String("results-dir", "results", "base directory for stored runs")

	rootCmd.AddCommand(extractCmd)
}
