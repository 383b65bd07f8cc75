// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdiddy/spark-engine/internal/llm"
	"github.com/pdiddy/spark-engine/pkg/types"
)

// ProgressFunc receives (done, total) after every record, success or
// failure. Calls are exact and monotonic.
type ProgressFunc func(done, total int)

// Options configures a batch run.
type Options struct {
	// Workers bounds concurrent in-flight backend calls. Values below 2
	// process records sequentially.
	Workers int

	// Progress is invoked after every record. Optional.
	Progress ProgressFunc

	// Log receives one human-readable line per record. Optional.
	Log io.Writer
}

// RunBatch extracts entities from every record and assembles the output
// table: one outcome per input record, in input order regardless of worker
// count. The schema is validated before any backend call; an invalid schema
// aborts the whole batch. A failing record produces a failed outcome and the
// batch continues — per-record failures never propagate. Cancellation is
// checked before each record starts.
func RunBatch(ctx context.Context, backend llm.Backend, schema *types.Schema, records []types.Record, opts Options) (types.OutputTable, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return types.OutputTable{}, nil
	}

	if opts.Log == nil {
		opts.Log = io.Discard
	}
	if opts.Progress == nil {
		opts.Progress = func(int, int) {}
	}

	extractor := NewExtractor(backend, schema)

	if opts.Workers < 2 {
		return runSequential(ctx, extractor, records, opts)
	}
	return runConcurrent(ctx, extractor, records, opts)
}

func runSequential(ctx context.Context, extractor *Extractor, records []types.Record, opts Options) (types.OutputTable, error) {
	total := len(records)
	table := make(types.OutputTable, 0, total)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome := processRecord(ctx, extractor, rec)
		table = append(table, outcome)

		logOutcome(opts.Log, i, total, outcome)
		opts.Progress(i+1, total)
	}

	return table, nil
}

func runConcurrent(ctx context.Context, extractor *Extractor, records []types.Record, opts Options) (types.OutputTable, error) {
	total := len(records)
	table := make(types.OutputTable, total)

	sem := make(chan struct{}, opts.Workers)
	var wg sync.WaitGroup

	// done and the progress callback share one lock so progress reports
	// stay exact and monotonic under concurrency.
	var mu sync.Mutex
	done := 0

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, rec types.Record) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := processRecord(ctx, extractor, rec)
			table[i] = outcome

			mu.Lock()
			done++
			logOutcome(opts.Log, i, total, outcome)
			opts.Progress(done, total)
			mu.Unlock()
		}(i, rec)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// processRecord runs one extraction call and converts the result or error
// into an outcome. This is the failure-isolation boundary.
func processRecord(ctx context.Context, extractor *Extractor, rec types.Record) types.RecordOutcome {
	results, err := extractor.ExtractRecord(ctx, rec.CombinedText())
	if err != nil {
		return types.RecordOutcome{
			Record: rec,
			Status: types.StatusFailed,
			Err:    err.Error(),
		}
	}
	return types.RecordOutcome{
		Record:  rec,
		Results: results,
		Status:  types.StatusSucceeded,
	}
}

func logOutcome(w io.Writer, i, total int, outcome types.RecordOutcome) {
	if outcome.Status == types.StatusFailed {
		fmt.Fprintf(w, "failed    record %d/%d: %s\n", i+1, total, outcome.Err)
		return
	}
	values := 0
	for _, r := range outcome.Results {
		values += len(r.Values)
	}
	fmt.Fprintf(w, "extracted record %d/%d (%d values)\n", i+1, total, values)
}
