// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists extraction runs to a local SQLite database so
// results can be re-exported and their statistics recomputed later without
// repeating any LLM calls.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/spark-engine/pkg/types"
)

const dbFile = "runs.db"

// Store manages the extraction run database.
type Store struct {
	db *sql.DB
}

// RunInfo summarizes one stored run.
type RunInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Backend   string    `json:"backend"`
	Model     string    `json:"model"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// Run is a fully loaded stored run: the schema it used and the full output
// table, in original record order.
type Run struct {
	RunInfo
	Schema types.Schema      `json:"schema"`
	Table  types.OutputTable `json:"table"`
}

// Open opens or creates the run database at cfg.ResultsDir/runs.db and
// creates the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.ResultsDir
	if dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			backend TEXT,
			model TEXT,
			schema_json TEXT NOT NULL,
			total INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			title TEXT,
			abstract TEXT,
			metadata_json TEXT,
			status TEXT NOT NULL,
			error TEXT,
			results_json TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a completed batch and returns the new run ID.
func (s *Store) SaveRun(ctx context.Context, schema *types.Schema, backend, model string, table types.OutputTable) (string, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshaling schema: %w", err)
	}

	stats := countStatuses(table)
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, backend, model, schema_json, total, succeeded, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), backend, model,
		string(schemaJSON), len(table), stats[0], stats[1])
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for i, outcome := range table {
		metaJSON, err := json.Marshal(outcome.Record.Metadata)
		if err != nil {
			return "", fmt.Errorf("marshaling metadata for row %d: %w", i, err)
		}
		resultsJSON, err := json.Marshal(outcome.Results)
		if err != nil {
			return "", fmt.Errorf("marshaling results for row %d: %w", i, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO outcomes (run_id, position, title, abstract, metadata_json, status, error, results_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, outcome.Record.Title, outcome.Record.Abstract,
			string(metaJSON), string(outcome.Status), outcome.Err, string(resultsJSON))
		if err != nil {
			return "", fmt.Errorf("inserting outcome %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// ListRuns returns stored run summaries, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, backend, model, total, succeeded, failed
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var infos []RunInfo
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// GetRun loads one stored run with its schema and full output table.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, backend, model, schema_json, total, succeeded, failed
		 FROM runs WHERE id = ?`, runID)

	var info RunInfo
	var createdAt, schemaJSON string
	err := row.Scan(&info.ID, &createdAt, &info.Backend, &info.Model,
		&schemaJSON, &info.Total, &info.Succeeded, &info.Failed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	info.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	run := &Run{RunInfo: info}
	if err := json.Unmarshal([]byte(schemaJSON), &run.Schema); err != nil {
		return nil, fmt.Errorf("parsing stored schema: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, abstract, metadata_json, status, error, results_json
		 FROM outcomes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome types.RecordOutcome
		var metaJSON, status, resultsJSON string
		err := rows.Scan(&outcome.Record.Title, &outcome.Record.Abstract,
			&metaJSON, &status, &outcome.Err, &resultsJSON)
		if err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		outcome.Status = types.OutcomeStatus(status)
		if err := json.Unmarshal([]byte(metaJSON), &outcome.Record.Metadata); err != nil {
			return nil, fmt.Errorf("parsing stored metadata: %w", err)
		}
		if err := json.Unmarshal([]byte(resultsJSON), &outcome.Results); err != nil {
			return nil, fmt.Errorf("parsing stored results: %w", err)
		}
		run.Table = append(run.Table, outcome)
	}
	return run, rows.Err()
}

func scanRunInfo(rows *sql.Rows) (RunInfo, error) {
	var info RunInfo
	var createdAt string
	err := rows.Scan(&info.ID, &createdAt, &info.Backend, &info.Model,
		&info.Total, &info.Succeeded, &info.Failed)
	if err != nil {
		return RunInfo{}, fmt.Errorf("scanning run: %w", err)
	}
	info.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return info, nil
}

func countStatuses(table types.OutputTable) [2]int {
	var counts [2]int
	for _, outcome := range table {
		if outcome.Status == types.StatusSucceeded {
			counts[0]++
		} else {
			counts[1]++
		}
	}
	return counts
}
