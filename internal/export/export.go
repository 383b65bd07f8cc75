// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders an output table for download: a flat CSV with the
// original input columns plus one column per schema entity, or structured
// JSON/YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/spark-engine/pkg/types"
)

// valueSeparator joins multiple extracted values into one CSV cell.
const valueSeparator = "; "

// JoinValues renders a multi-value extraction as a single cell.
func JoinValues(values []string) string {
	return strings.Join(values, valueSeparator)
}

// WriteCSV writes the table as flat rows: title, abstract, the union of
// passthrough metadata columns in first-appearance order, one column per
// schema entity, then status and error. Output rows preserve input order.
func WriteCSV(w io.Writer, table types.OutputTable, schema *types.Schema) error {
	metaCols := metadataColumns(table)

	header := []string{"title", "abstract"}
	header = append(header, metaCols...)
	header = append(header, schema.EntityNames()...)
	header = append(header, "status", "error")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, outcome := range table {
		row := []string{outcome.Record.Title, outcome.Record.Abstract}
		for _, col := range metaCols {
			row = append(row, outcome.Record.MetadataValue(col))
		}
		for _, entity := range schema.EntityNames() {
			row = append(row, JoinValues(outcome.Values(entity)))
		}
		row = append(row, string(outcome.Status), outcome.Err)

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the table as indented JSON.
func WriteJSON(w io.Writer, table types.OutputTable) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(table); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

// WriteYAML writes the table as YAML.
func WriteYAML(w io.Writer, table types.OutputTable) error {
	data, err := yaml.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// metadataColumns returns the union of passthrough column names across all
// records, in order of first appearance.
func metadataColumns(table types.OutputTable) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, outcome := range table {
		for _, f := range outcome.Record.Metadata {
			if !seen[f.Key] {
				seen[f.Key] = true
				cols = append(cols, f.Key)
			}
		}
	}
	return cols
}
