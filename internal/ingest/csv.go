// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/spark-engine/pkg/types"
)

// ParseCSV reads records from CSV content. The header must contain title and
// abstract columns, resolved case-insensitively; every other column is
// preserved verbatim, in header order, as passthrough metadata.
func ParseCSV(r io.Reader) ([]types.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &IngestionError{Msg: "CSV file is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	titleIdx, abstractIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "title":
			if titleIdx == -1 {
				titleIdx = i
			}
		case "abstract":
			if abstractIdx == -1 {
				abstractIdx = i
			}
		}
	}
	if titleIdx == -1 || abstractIdx == -1 {
		return nil, &IngestionError{Msg: "CSV must contain 'title' and 'abstract' columns"}
	}

	var records []types.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", len(records)+2, err)
		}

		rec := types.Record{}
		for i, col := range header {
			if i >= len(row) {
				break
			}
			switch i {
			case titleIdx:
				rec.Title = row[i]
			case abstractIdx:
				rec.Abstract = row[i]
			default:
				rec.Metadata = append(rec.Metadata, types.Field{Key: col, Value: row[i]})
			}
		}
		records = append(records, rec)
	}

	return records, nil
}
