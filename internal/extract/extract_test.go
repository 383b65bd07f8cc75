// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pdiddy/spark-engine/internal/llm"
	"github.com/pdiddy/spark-engine/pkg/types"
)

// --- mock backend ---

// mockBackend routes each prompt to a canned response by substring match on
// the document text, and counts calls.
type mockBackend struct {
	mu        sync.Mutex
	calls     int
	responses map[string]llm.Response // document substring → response
	errors    map[string]error        // document substring → forced error
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Annotate(_ context.Context, prompt string) (llm.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	for substr, err := range m.errors {
		if strings.Contains(prompt, substr) {
			return llm.Response{}, err
		}
	}
	for substr, resp := range m.responses {
		if strings.Contains(prompt, substr) {
			return resp, nil
		}
	}
	return llm.Response{}, nil
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testSchema() *types.Schema {
	return &types.Schema{
		Context: "Title: Example trial\n\nAbstract: A study of aspirin in headache.",
		Entities: []types.Entity{
			{Name: "Disease", Description: "The condition studied", Examples: []string{"headache"}},
			{Name: "Intervention", Examples: []string{"aspirin"}},
		},
	}
}

// --- Extractor ---

func TestExtractRecord(t *testing.T) {
	backend := &mockBackend{
		responses: map[string]llm.Response{
			"Metformin trial": {Spans: []llm.Span{
				{Entity: "Disease", Text: "Type 2 Diabetes"},
				{Entity: "Intervention", Text: "Metformin"},
			}},
		},
	}
	extractor := NewExtractor(backend, testSchema())

	results, err := extractor.ExtractRecord(context.Background(),
		"Title: Metformin trial\n\nAbstract: ...diabetes...")
	if err != nil {
		t.Fatalf("ExtractRecord() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want one per schema entity", len(results))
	}
	if results[0].Entity != "Disease" || results[1].Entity != "Intervention" {
		t.Errorf("results not in schema order: %+v", results)
	}
	if len(results[0].Values) != 1 || results[0].Values[0] != "Type 2 Diabetes" {
		t.Errorf("Disease values = %v", results[0].Values)
	}
	if len(results[1].Values) != 1 || results[1].Values[0] != "Metformin" {
		t.Errorf("Intervention values = %v", results[1].Values)
	}
}

func TestExtractRecordIgnoresUnknownEntities(t *testing.T) {
	backend := &mockBackend{
		responses: map[string]llm.Response{
			"some document": {Spans: []llm.Span{
				{Entity: "Disease", Text: "asthma"},
				{Entity: "Sponsor", Text: "Acme Pharma"}, // not in schema: noise
				{Entity: "", Text: "stray"},
			}},
		},
	}
	extractor := NewExtractor(backend, testSchema())

	results, err := extractor.ExtractRecord(context.Background(), "Title: some document")
	if err != nil {
		t.Fatalf("ExtractRecord() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if len(results[0].Values) != 1 || results[0].Values[0] != "asthma" {
		t.Errorf("Disease values = %v", results[0].Values)
	}
	// Intervention never matched: empty values, not absent.
	if results[1].Entity != "Intervention" || len(results[1].Values) != 0 {
		t.Errorf("Intervention result = %+v, want empty values", results[1])
	}
}

func TestExtractRecordDeduplicatesValues(t *testing.T) {
	backend := &mockBackend{
		responses: map[string]llm.Response{
			"repeat": {Spans: []llm.Span{
				{Entity: "Disease", Text: "migraine"},
				{Entity: "Disease", Text: "migraine"},
				{Entity: "Disease", Text: "Migraine"}, // exact-match dedup is case-sensitive
				{Entity: "Disease", Text: "asthma"},
			}},
		},
	}
	extractor := NewExtractor(backend, testSchema())

	results, err := extractor.ExtractRecord(context.Background(), "Title: repeat")
	if err != nil {
		t.Fatalf("ExtractRecord() error = %v", err)
	}

	want := []string{"Migraine", "asthma", "migraine"}
	got := results[0].Values
	if len(got) != len(want) {
		t.Fatalf("Disease values = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values[%d] = %q, want %q (sorted unique)", i, got[i], want[i])
		}
	}
}

func TestExtractRecordEmptyDocument(t *testing.T) {
	backend := &mockBackend{}
	extractor := NewExtractor(backend, testSchema())

	results, err := extractor.ExtractRecord(context.Background(), "")
	if err != nil {
		t.Fatalf("ExtractRecord() error = %v", err)
	}
	if backend.callCount() != 0 {
		t.Errorf("backend called %d times for an empty document, want 0", backend.callCount())
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want one per entity", len(results))
	}
	for _, r := range results {
		if len(r.Values) != 0 {
			t.Errorf("entity %s has values %v for an empty document", r.Entity, r.Values)
		}
	}
}

func TestExtractRecordBackendFailure(t *testing.T) {
	backend := &mockBackend{
		errors: map[string]error{"doomed": fmt.Errorf("connection refused")},
	}
	extractor := NewExtractor(backend, testSchema())

	results, err := extractor.ExtractRecord(context.Background(), "Title: doomed")
	if results != nil {
		t.Errorf("got partial results %v on failure, want none", results)
	}
	var xerr *ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("error = %v, want *ExtractionError", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error %q does not carry the cause", err)
	}
}

// --- RunBatch ---

func batchRecords() []types.Record {
	return []types.Record{
		{Title: "First paper", Abstract: "about migraine", Metadata: []types.Field{{Key: "year", Value: "2021"}}},
		{Title: "Second paper", Abstract: "about asthma"},
		{Title: "Third paper", Abstract: "about diabetes"},
	}
}

func TestRunBatchOrderAndShape(t *testing.T) {
	backend := &mockBackend{
		responses: map[string]llm.Response{
			"First paper":  {Spans: []llm.Span{{Entity: "Disease", Text: "migraine"}}},
			"Second paper": {Spans: []llm.Span{{Entity: "Disease", Text: "asthma"}}},
			"Third paper":  {Spans: []llm.Span{{Entity: "Disease", Text: "diabetes"}}},
		},
	}
	records := batchRecords()

	table, err := RunBatch(context.Background(), backend, testSchema(), records, Options{})
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}

	if len(table) != len(records) {
		t.Fatalf("got %d rows, want %d", len(table), len(records))
	}
	for i, outcome := range table {
		if outcome.Record.Title != records[i].Title {
			t.Errorf("row %d holds record %q, want %q", i, outcome.Record.Title, records[i].Title)
		}
		if outcome.Status != types.StatusSucceeded {
			t.Errorf("row %d status = %s", i, outcome.Status)
		}
		if len(outcome.Results) != 2 {
			t.Errorf("row %d has %d results, want one per entity", i, len(outcome.Results))
		}
	}
	// Passthrough metadata rides along untouched.
	if got := table[0].Record.MetadataValue("year"); got != "2021" {
		t.Errorf("metadata year = %q, want 2021", got)
	}
}

func TestRunBatchFailureIsolation(t *testing.T) {
	backend := &mockBackend{
		responses: map[string]llm.Response{
			"First paper": {Spans: []llm.Span{{Entity: "Disease", Text: "migraine"}}},
			"Third paper": {Spans: []llm.Span{{Entity: "Disease", Text: "diabetes"}}},
		},
		errors: map[string]error{"Second paper": fmt.Errorf("rate limit")},
	}

	table, err := RunBatch(context.Background(), backend, testSchema(), batchRecords(), Options{})
	if err != nil {
		t.Fatalf("RunBatch() error = %v, a record failure must not abort the batch", err)
	}

	if len(table) != 3 {
		t.Fatalf("got %d rows, want 3", len(table))
	}
	if table[0].Status != types.StatusSucceeded || table[2].Status != types.StatusSucceeded {
		t.Errorf("neighboring rows affected by the failure: %s, %s", table[0].Status, table[2].Status)
	}

	failed := table[1]
	if failed.Status != types.StatusFailed {
		t.Fatalf("row 1 status = %s, want failed", failed.Status)
	}
	if len(failed.Results) != 0 {
		t.Errorf("failed row carries results: %+v", failed.Results)
	}
	if !strings.Contains(failed.Err, "rate limit") {
		t.Errorf("failed row error = %q, want the cause", failed.Err)
	}
}

func TestRunBatchEmptyRecords(t *testing.T) {
	backend := &mockBackend{}

	table, err := RunBatch(context.Background(), backend, testSchema(), nil, Options{})
	if err != nil {
		t.Fatalf("RunBatch() error = %v, empty input is not an error", err)
	}
	if len(table) != 0 {
		t.Errorf("got %d rows, want 0", len(table))
	}
	if backend.callCount() != 0 {
		t.Errorf("backend called %d times, want 0", backend.callCount())
	}
}

func TestRunBatchInvalidSchemaFailsFast(t *testing.T) {
	backend := &mockBackend{}
	bad := &types.Schema{
		Entities: []types.Entity{{Name: "Disease"}, {Name: "Disease"}},
	}

	_, err := RunBatch(context.Background(), backend, bad, batchRecords(), Options{})
	var serr *types.SchemaError
	if !errors.As(err, &serr) {
		t.Fatalf("RunBatch() error = %v, want *types.SchemaError", err)
	}
	if backend.callCount() != 0 {
		t.Errorf("backend called %d times before validation, want 0", backend.callCount())
	}
}

func TestRunBatchProgressReporting(t *testing.T) {
	backend := &mockBackend{
		errors: map[string]error{"Second paper": fmt.Errorf("boom")},
	}

	var mu sync.Mutex
	var reports [][2]int
	progress := func(done, total int) {
		mu.Lock()
		reports = append(reports, [2]int{done, total})
		mu.Unlock()
	}

	_, err := RunBatch(context.Background(), backend, testSchema(), batchRecords(), Options{Progress: progress})
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}

	if len(reports) != 3 {
		t.Fatalf("got %d progress reports, want one per record", len(reports))
	}
	for i, r := range reports {
		if r[0] != i+1 || r[1] != 3 {
			t.Errorf("report %d = (%d, %d), want (%d, 3)", i, r[0], r[1], i+1)
		}
	}
}

func TestRunBatchCancellation(t *testing.T) {
	backend := &mockBackend{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBatch(ctx, backend, testSchema(), batchRecords(), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunBatch() error = %v, want context.Canceled", err)
	}
	if backend.callCount() != 0 {
		t.Errorf("backend called %d times after cancellation, want 0", backend.callCount())
	}
}

// countingBackend tracks concurrent in-flight calls.
type countingBackend struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (c *countingBackend) Name() string { return "counting" }

func (c *countingBackend) Annotate(_ context.Context, _ string) (llm.Response, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		seen := c.maxInFlight.Load()
		if n <= seen || c.maxInFlight.CompareAndSwap(seen, n) {
			break
		}
	}
	return llm.Response{Spans: []llm.Span{{Entity: "Disease", Text: "x"}}}, nil
}

func TestRunBatchConcurrent(t *testing.T) {
	backend := &countingBackend{}

	records := make([]types.Record, 20)
	for i := range records {
		records[i] = types.Record{Title: fmt.Sprintf("Paper %02d", i)}
	}

	var mu sync.Mutex
	var dones []int
	opts := Options{
		Workers: 4,
		Progress: func(done, total int) {
			mu.Lock()
			dones = append(dones, done)
			mu.Unlock()
		},
	}

	table, err := RunBatch(context.Background(), backend, testSchema(), records, opts)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}

	if len(table) != len(records) {
		t.Fatalf("got %d rows, want %d", len(table), len(records))
	}
	for i, outcome := range table {
		if outcome.Record.Title != records[i].Title {
			t.Errorf("row %d holds %q, want %q (input order must survive concurrency)",
				i, outcome.Record.Title, records[i].Title)
		}
		if outcome.Status != types.StatusSucceeded {
			t.Errorf("row %d status = %s", i, outcome.Status)
		}
	}

	if got := backend.maxInFlight.Load(); got > 4 {
		t.Errorf("max in-flight calls = %d, want <= 4", got)
	}

	// Progress stays exact and monotonic regardless of completion order.
	if len(dones) != len(records) {
		t.Fatalf("got %d progress reports, want %d", len(dones), len(records))
	}
	for i, d := range dones {
		if d != i+1 {
			t.Errorf("progress report %d = %d, want %d", i, d, i+1)
		}
	}
}

// --- Summarize ---

func TestSummarize(t *testing.T) {
	schema := testSchema()
	table := types.OutputTable{
		{
			Status: types.StatusSucceeded,
			Results: []types.ExtractionResult{
				{Entity: "Disease", Values: []string{"migraine", "asthma"}},
				{Entity: "Intervention", Values: nil},
			},
		},
		{
			Status: types.StatusFailed,
			Err:    "rate limit",
		},
		{
			Status: types.StatusSucceeded,
			Results: []types.ExtractionResult{
				{Entity: "Disease", Values: []string{"diabetes"}},
				{Entity: "Intervention", Values: []string{"metformin"}},
			},
		},
	}

	stats := Summarize(table, schema)

	if stats.TotalRecords != 3 || stats.Succeeded != 2 || stats.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", stats.TotalRecords, stats.Succeeded, stats.Failed)
	}
	if stats.Succeeded+stats.Failed != stats.TotalRecords {
		t.Error("succeeded + failed != total")
	}

	disease := stats.PerEntity["Disease"]
	if disease.RecordsWithValues != 2 || disease.TotalValues != 3 {
		t.Errorf("Disease stats = %+v, want 2 records / 3 values", disease)
	}
	intervention := stats.PerEntity["Intervention"]
	if intervention.RecordsWithValues != 1 || intervention.TotalValues != 1 {
		t.Errorf("Intervention stats = %+v, want 1 record / 1 value", intervention)
	}
	for name, es := range stats.PerEntity {
		if es.RecordsWithValues > stats.Succeeded {
			t.Errorf("entity %s: RecordsWithValues %d > Succeeded %d", name, es.RecordsWithValues, stats.Succeeded)
		}
	}

	// Pure function: a second pass yields identical results.
	again := Summarize(table, schema)
	if again.TotalRecords != stats.TotalRecords || again.Succeeded != stats.Succeeded ||
		again.PerEntity["Disease"] != stats.PerEntity["Disease"] {
		t.Error("Summarize is not idempotent")
	}
}

func TestSummarizeEmptyTable(t *testing.T) {
	stats := Summarize(types.OutputTable{}, testSchema())

	if stats.TotalRecords != 0 || stats.Succeeded != 0 || stats.Failed != 0 {
		t.Errorf("counts = %+v, want all zero", stats)
	}
	if got := stats.SuccessRate(); got != 0 {
		t.Errorf("SuccessRate() = %f on empty table, want 0", got)
	}
	if got := stats.CoverageRate("Disease"); got != 0 {
		t.Errorf("CoverageRate() = %f on empty table, want 0", got)
	}
	if _, ok := stats.PerEntity["Disease"]; !ok {
		t.Error("schema entities should appear in PerEntity even for an empty table")
	}
}

// --- BuildPrompt ---

func TestBuildPrompt(t *testing.T) {
	schema := testSchema()
	prompt, err := BuildPrompt(schema, "Title: Metformin trial")
	if err != nil {
		t.Fatalf("BuildPrompt() error = %v", err)
	}

	for _, want := range []string{
		"Extract Disease, Intervention in order of appearance",
		"- Disease: The condition studied",
		"- Intervention",
		schema.Context,
		`{"entity":"Disease","text":"headache"}`,
		`{"entity":"Intervention","text":"aspirin"}`,
		"Title: Metformin trial",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n---\n%s", want, prompt)
		}
	}
}

func TestBuildPromptNoExamples(t *testing.T) {
	schema := &types.Schema{
		Entities: []types.Entity{{Name: "Outcome"}},
	}
	prompt, err := BuildPrompt(schema, "some text")
	if err != nil {
		t.Fatalf("BuildPrompt() error = %v", err)
	}
	if strings.Contains(prompt, "Example document") {
		t.Error("prompt includes an example block with no context to show")
	}
}
