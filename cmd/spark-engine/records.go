// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/spark-engine/internal/ingest"
)

var recordsCmd = &cobra.Command{
	Use:   "records <references-file>",
	Short: "Preview the records a references file parses into",
	Long: `Records parses a RIS or CSV references file without running extraction
and shows what would be ingested: total counts, how many records carry
a title and an abstract, and the first few parsed records.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecords,
}

func runRecords(cmd *cobra.Command, args []string) error {
	records, err := ingestRecords(cmd, args[0])
	if err != nil {
		return err
	}

	summary := ingest.Summarize(records)
	fmt.Printf("Records: %d total, %d with title, %d with abstract\n",
		summary.Total, summary.WithTitle, summary.WithAbstract)

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	preview := records[:limit]

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(preview)
	}

	for i, rec := range preview {
		title := rec.Title
		if title == "" {
			title = "(no title)"
		}
		fmt.Printf("\n[%d] %s\n", i+1, title)
		if rec.Abstract != "" {
			fmt.Printf("    %s\n", truncate(rec.Abstract, 200))
		}
		for _, field := range rec.Metadata {
			fmt.Printf("    %s: %s\n", field.Key, field.Value)
		}
	}
	return nil
}

// truncate shortens s to at most n runes, ending in "..." when cut. Rune
// counting keeps multi-byte text intact.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func init() {
	recordsCmd.Flags().String("format", "", "input format: ris or csv (default: detect from extension)")
	recordsCmd.Flags().Int("limit", 5, "number of records to preview (0 = all)")
	recordsCmd.Flags().Bool("json", false, "output the preview as JSON")

	rootCmd.AddCommand(recordsCmd)
}
