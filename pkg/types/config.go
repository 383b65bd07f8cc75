package types

import "time"

// AIConfig holds shared settings for the LLM extraction backend.
type AIConfig struct {
	// Backend selects the LLM backend: openai, anthropic, or ollama.
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the backend API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the backend endpoint (OpenAI-compatible gateways,
	// local Ollama servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxTokens caps the response size per extraction call (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout is the per-call HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ExtractionConfig holds settings for the batch extraction stage.
type ExtractionConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Workers bounds concurrent in-flight extraction calls. 1 (the default)
	// processes records sequentially.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// IngestFormat identifies the input file format.
type IngestFormat string

const (
	FormatRIS IngestFormat = "ris"
	FormatCSV IngestFormat = "csv"
)

// IngestConfig holds settings for record ingestion.
type IngestConfig struct {
	// Format selects the parser: ris or csv. Empty means detect from the
	// file extension.
	Format IngestFormat `json:"format" yaml:"format" mapstructure:"format"`
}

// StoreConfig holds settings for the extraction run store.
type StoreConfig struct {
	// ResultsDir is the base directory for stored runs (contains runs.db).
	ResultsDir string `json:"results_dir" yaml:"results_dir" mapstructure:"results_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Ingest     IngestConfig     `json:"ingest" yaml:"ingest" mapstructure:"ingest"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
}
