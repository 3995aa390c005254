package types

import "time"

// AIConfig holds shared settings for calls to the text-completion API.
type AIConfig struct {
	// Model is the completion model identifier (e.g. "gpt-4o").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the completion API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for rate-limited or
	// transiently failing API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout is the per-request HTTP timeout (default 5m; completion
	// calls on large chunks are slow).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ChunkingConfig holds the size and overlap limits for document splitting.
type ChunkingConfig struct {
	// MaxChunkSize is the maximum chunk length in bytes (default 8000).
	MaxChunkSize int `json:"max_chunk_size" yaml:"max_chunk_size"`

	// OverlapSize is the number of bytes duplicated from the tail of one
	// chunk into the start of the next (default 400). Must be smaller
	// than MaxChunkSize.
	OverlapSize int `json:"overlap_size" yaml:"overlap_size"`

	// ExcerptLimit bounds the tail of the previous output kept for the
	// continuity prefix (default 500).
	ExcerptLimit int `json:"excerpt_limit" yaml:"excerpt_limit"`
}

// FormatConfig groups all settings for a formatting run.
type FormatConfig struct {
	AIConfig       `yaml:",inline"`
	ChunkingConfig `yaml:",inline"`

	// PromptFile is the path of the base instruction prompt (default
	// "data/prompt.md").
	PromptFile string `json:"prompt_file" yaml:"prompt_file"`

	// OutputFile is the path the formatted Markdown is written to
	// (default "data/output.md").
	OutputFile string `json:"output_file" yaml:"output_file"`

	// ContextFile is the path of the persisted session context (default
	// "data/context.yaml").
	ContextFile string `json:"context_file" yaml:"context_file"`

	// ContextEnabled controls whether session context is loaded and
	// saved across runs (default true).
	ContextEnabled bool `json:"context_enabled" yaml:"context_enabled"`

	// DataDir is the base directory for run history (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}
