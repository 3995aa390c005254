// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data model for the formatting
// pipeline: documents, chunks, per-chunk results, session context, and
// stage configuration.
package types

import "fmt"

// Document is an immutable wrapper around the raw input text. It is
// created once at session start and passed read-only to every stage.
type Document struct {
	// SourceID identifies where the text came from (a file path,
	// "stdin", or "inline").
	SourceID string

	// Text is the full input text. Never mutated after construction.
	Text string
}

// NewDocument validates and wraps raw input text.
func NewDocument(sourceID, text string) (Document, error) {
	if len(text) == 0 {
		return Document{}, fmt.Errorf("document %q has no content: %w", sourceID, ErrInvalidInput)
	}
	return Document{SourceID: sourceID, Text: text}, nil
}

// Len returns the document size in bytes.
func (d Document) Len() int {
	return len(d.Text)
}

// Chunk is a bounded contiguous slice of a document, processed as one
// unit of work. Offsets are byte positions in the original text.
type Chunk struct {
	// Index is the 0-based ordinal of the chunk.
	Index int

	// Text is the chunk content, a substring of the document text.
	Text string

	// StartOffset and EndOffset locate the chunk in the document.
	// EndOffset > StartOffset always holds.
	StartOffset int
	EndOffset   int

	// OverlapWithPrevious is the number of bytes at the start of this
	// chunk that were already covered by the previous chunk. 0 for the
	// first chunk.
	OverlapWithPrevious int

	// HardSplit is set when no unit boundary was found near the cut
	// point and the chunk was severed at an exact offset. Continuity
	// consumers use it to know a forced cut occurred.
	HardSplit bool
}

// ChunkStatus is the outcome of processing one chunk.
type ChunkStatus string

const (
	StatusSucceeded ChunkStatus = "succeeded"
	StatusFailed    ChunkStatus = "failed"
)

// ProcessingResult is the immutable per-chunk outcome.
type ProcessingResult struct {
	ChunkIndex  int
	OutputText  string
	Status      ChunkStatus
	ErrorDetail string
}

// ChunkError records one failed chunk in the persisted context.
type ChunkError struct {
	ChunkIndex  int    `json:"chunk_index" yaml:"chunk_index"`
	ErrorDetail string `json:"error_detail" yaml:"error_detail"`
}

// FormattingContext is the session-scoped state that carries continuity
// across chunks and, once persisted, across runs. It is owned
// exclusively by the formatting session; no other component mutates it.
type FormattingContext struct {
	// ProcessedCount is the number of chunks formatted successfully.
	ProcessedCount int `json:"processed_count" yaml:"processed_count"`

	// LastOutputExcerpt is a bounded tail of the most recent successful
	// output, used to seed the next chunk's continuity prefix.
	LastOutputExcerpt string `json:"last_output_excerpt" yaml:"last_output_excerpt"`

	// AccumulatedErrors lists per-chunk failures in the order they
	// occurred.
	AccumulatedErrors []ChunkError `json:"accumulated_errors" yaml:"accumulated_errors"`
}

// RecordSuccess notes a successfully formatted chunk, keeping at most
// excerptLimit bytes from the tail of its output.
func (c *FormattingContext) RecordSuccess(output string, excerptLimit int) {
	c.ProcessedCount++
	c.LastOutputExcerpt = Tail(output, excerptLimit)
}

// RecordFailure appends a failed chunk to the error list. The last
// successful excerpt is left in place so continuity can degrade to
// "approximate context" instead of aborting.
func (c *FormattingContext) RecordFailure(chunkIndex int, detail string) {
	c.AccumulatedErrors = append(c.AccumulatedErrors, ChunkError{
		ChunkIndex:  chunkIndex,
		ErrorDetail: detail,
	})
}

// PreviousChunkFailed reports whether the most recently recorded failure
// was the chunk immediately before chunkIndex.
func (c *FormattingContext) PreviousChunkFailed(chunkIndex int) bool {
	if len(c.AccumulatedErrors) == 0 {
		return false
	}
	return c.AccumulatedErrors[len(c.AccumulatedErrors)-1].ChunkIndex == chunkIndex-1
}

// Tail returns at most limit bytes from the end of s, starting at a rune
// boundary so the excerpt is always valid UTF-8.
func Tail(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := len(s) - limit
	for cut < len(s) && !isRuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
