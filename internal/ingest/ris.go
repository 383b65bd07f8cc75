// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/spark-engine/pkg/types"
)

// risEntry accumulates tag values for one RIS reference. Repeatable tags
// (AU, KW) keep every occurrence.
type risEntry map[string][]string

func (e risEntry) first(tags ...string) string {
	for _, tag := range tags {
		if vals := e[tag]; len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func (e risEntry) joined(tag string) string {
	return strings.Join(e[tag], "; ")
}

// ParseRIS reads records from RIS content. Each reference becomes one record:
// TI/T1 → title, AB/N2 → abstract; authors, year, journal, DOI, keywords,
// and reference type are carried as passthrough metadata so the output table
// retains the familiar bibliographic columns.
func ParseRIS(r io.Reader) ([]types.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var records []types.Record
	entry := risEntry{}
	lastTag := ""
	sawTag := false

	flush := func() {
		if len(entry) == 0 {
			return
		}
		records = append(records, recordFromRIS(entry))
		entry = risEntry{}
		lastTag = ""
	}

	for scanner.Scan() {
		line := scanner.Text()
		tag, value, ok := splitRISLine(line)
		if !ok {
			// Continuation of the previous tag's value.
			if lastTag != "" && strings.TrimSpace(line) != "" {
				vals := entry[lastTag]
				vals[len(vals)-1] += " " + strings.TrimSpace(line)
			}
			continue
		}
		sawTag = true

		if tag == "ER" {
			flush()
			continue
		}
		entry[tag] = append(entry[tag], value)
		lastTag = tag
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading RIS content: %w", err)
	}

	// Tolerate a trailing reference without its ER terminator.
	flush()

	if !sawTag {
		return nil, &IngestionError{Msg: "no RIS references found"}
	}
	return records, nil
}

// splitRISLine parses a "TAG  - value" line. Tags are two characters,
// uppercase letters or digits. The value may be absent: terminator lines
// are commonly written as just "ER  -".
func splitRISLine(line string) (tag, value string, ok bool) {
	if len(line) < 5 || line[2:5] != "  -" {
		return "", "", false
	}
	if len(line) > 5 && line[5] != ' ' {
		return "", "", false
	}
	tag = line[:2]
	for _, c := range tag {
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return "", "", false
		}
	}
	if len(line) <= 6 {
		return tag, "", true
	}
	return tag, strings.TrimSpace(line[6:]), true
}

func recordFromRIS(entry risEntry) types.Record {
	authors := entry.joined("AU")
	if authors == "" {
		authors = entry.joined("A1")
	}

	return types.Record{
		Title:    entry.first("TI", "T1"),
		Abstract: entry.first("AB", "N2"),
		Metadata: []types.Field{
			{Key: "authors", Value: authors},
			{Key: "year", Value: entry.first("PY", "Y1")},
			{Key: "journal", Value: entry.first("JO", "JF", "T2")},
			{Key: "doi", Value: entry.first("DO")},
			{Key: "keywords", Value: entry.joined("KW")},
			{Key: "type", Value: entry.first("TY")},
		},
	}
}
