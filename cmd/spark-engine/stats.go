// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/spark-engine/internal/extract"
	"github.com/pdiddy/spark-engine/internal/store"
	"github.com/pdiddy/spark-engine/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats <run-id>",
	Short: "Show extraction statistics for a stored run",
	Long: `Stats recomputes per-entity extraction statistics from a stored run:
success and failure counts, how many records matched each entity, and
how many values each entity produced in total.`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := store.Open(types.StoreConfig{ResultsDir: resultsDir(cmd)})
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	stats := extract.Summarize(run.Table, &run.Schema)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	printStats(os.Stdout, stats, &run.Schema)
	return nil
}

// printStats renders batch statistics as a small fixed-width table, entities
// in schema order.
func printStats(w io.Writer, stats types.Statistics, schema *types.Schema) {
	fmt.Fprintf(w, "Records: %d total, %d succeeded, %d failed (%.1f%% success)\n",
		stats.TotalRecords, stats.Succeeded, stats.Failed, stats.SuccessRate())

	if len(schema.Entities) == 0 {
		return
	}

	fmt.Fprintf(w, "%-30s  %10s  %10s  %8s\n", "Entity", "Records", "Values", "Coverage")
	fmt.Fprintln(w, strings.Repeat("-", 64))
	for _, entity := range schema.Entities {
		es := stats.PerEntity[entity.Name]
		fmt.Fprintf(w, "%-30s  %10d  %10d  %7.1f%%\n",
			entity.Name, es.RecordsWithValues, es.TotalValues, stats.CoverageRate(entity.Name))
	}
}

func init() {
	statsCmd.Flags().String("results-dir", "results", "base directory for stored runs")
	statsCmd.Flags().Bool("json", false, "output statistics as JSON")

	rootCmd.AddCommand(statsCmd)
}
