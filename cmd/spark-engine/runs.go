// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/spark-engine/internal/export"
	"github.com/pdiddy/spark-engine/internal/store"
	"github.com/pdiddy/spark-engine/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored extraction runs (list, show)",
	Long: `Runs manages the local SQLite store of completed extraction runs. Runs
saved with "extract --save" can be listed, re-exported in any output
format, and re-summarized with the stats command.`,
}

// --- list subcommand ---

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, most recent first",
	RunE:  runRunsList,
}

func runRunsList(cmd *cobra.Command, args []string) error {
	db, err := openRunStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	infos, err := db.ListRuns(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Println("No stored runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-10s  %-24s  %7s  %9s  %6s\n",
		"ID", "Created", "Backend", "Model", "Records", "Succeeded", "Failed")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 122))
	for _, info := range infos {
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-10s  %-24s  %7d  %9d  %6d\n",
			info.ID, info.CreatedAt.Format("2006-01-02 15:04:05"),
			info.Backend, info.Model, info.Total, info.Succeeded, info.Failed)
	}
	return nil
}

// --- show subcommand ---

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Export a stored run's output table",
	Long: `Show loads a stored run and writes its output table in the requested
format, exactly as the original extract invocation would have.`,
	Args: cobra.ExactArgs(1),
	RunE: runRunsShow,
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	db, err := openRunStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	outFormat, _ := cmd.Flags().GetString("output-format")
	switch outFormat {
	case "csv", "":
		return export.WriteCSV(os.Stdout, run.Table, &run.Schema)
	case "json":
		return export.WriteJSON(os.Stdout, run.Table)
	case "yaml":
		return export.WriteYAML(os.Stdout, run.Table)
	default:
		return fmt.Errorf("unsupported output format %q: use csv, json, or yaml", outFormat)
	}
}

func openRunStore(cmd *cobra.Command) (*store.Store, error) {
	return store.Open(types.StoreConfig{ResultsDir: resultsDir(cmd)})
}

// resultsDir resolves the run store directory: the --results-dir flag when
// set, else the config file's store.results_dir, else the flag default.
// Every command touching the store resolves it this way, so a configured
// directory is seen by extract --save, runs, and stats alike.
func resultsDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("results-dir")
	if !cmd.Flags().Changed("results-dir") {
		if cfgDir := pipelineConfig().Store.ResultsDir; cfgDir != "" {
			dir = cfgDir
		}
	}
	return dir
}

func init() {
	runsCmd.PersistentFlags().String("results-dir", "results", "base directory for stored runs")

	runsListCmd.Flags().Bool("json", false, "output the run list as JSON")
	runsShowCmd.Flags().String("output-format", "csv", "output format: csv, json, or yaml")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	rootCmd.AddCommand(runsCmd)
}
