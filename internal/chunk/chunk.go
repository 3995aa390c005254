// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chunk splits a document into an ordered sequence of bounded,
// overlapping chunks. Cut points prefer paragraph breaks, then sentence
// endings, then plain whitespace, searched backward within a bounded
// window; when no boundary is found the chunk is severed at the exact
// offset and flagged as a hard split.
package chunk

import (
	"fmt"

	"github.com/pdiddy/format-engine/pkg/types"
)

// boundaryWindowDivisor sets the backward search window as a fraction of
// the maximum chunk size. A quarter keeps chunks at least three-quarters
// full while still finding paragraph breaks in ordinary prose.
const boundaryWindowDivisor = 4

// Split divides doc into ordered chunks of at most maxChunkSize bytes,
// each (after the first) starting with overlapSize bytes repeated from
// the previous chunk's tail. The split is a pure function of the
// document text: identical inputs produce identical sequences.
//
// Concatenating the chunk texts with each declared overlap removed
// reconstructs the document exactly.
func Split(doc types.Document, maxChunkSize, overlapSize int) ([]types.Chunk, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("max chunk size %d must be positive: %w", maxChunkSize, types.ErrInvalidConfiguration)
	}
	if overlapSize < 0 {
		return nil, fmt.Errorf("overlap size %d must not be negative: %w", overlapSize, types.ErrInvalidConfiguration)
	}
	if overlapSize >= maxChunkSize {
		return nil, fmt.Errorf("overlap size %d must be smaller than max chunk size %d: %w",
			overlapSize, maxChunkSize, types.ErrInvalidConfiguration)
	}
	text := doc.Text
	if len(text) == 0 {
		return nil, fmt.Errorf("document %q is empty: %w", doc.SourceID, types.ErrInvalidInput)
	}

	if len(text) <= maxChunkSize {
		return []types.Chunk{{
			Index:       0,
			Text:        text,
			StartOffset: 0,
			EndOffset:   len(text),
		}}, nil
	}

	window := maxChunkSize / boundaryWindowDivisor
	if window < 1 {
		window = 1
	}

	var chunks []types.Chunk
	prevStart, prevEnd := 0, 0

	for prevEnd < len(text) {
		start := prevEnd - overlapSize
		if start < 0 {
			start = 0
		}
		// Never re-cover a previous chunk beyond the declared overlap.
		if start < prevStart {
			start = prevStart
		}

		end := start + maxChunkSize
		hardSplit := false
		if end >= len(text) {
			end = len(text)
		} else {
			cut, ok := boundaryBefore(text, end, window)
			if ok && cut > prevEnd && cut > start {
				end = cut
			} else {
				hardSplit = true
			}
		}

		chunks = append(chunks, types.Chunk{
			Index:               len(chunks),
			Text:                text[start:end],
			StartOffset:         start,
			EndOffset:           end,
			OverlapWithPrevious: prevEnd - start,
			HardSplit:           hardSplit,
		})
		prevStart, prevEnd = start, end
	}

	return chunks, nil
}

// boundaryBefore searches text backward from offset "from" (exclusive)
// within the given window for the nearest unbreakable-unit boundary and
// returns the cut offset just after it. Paragraph breaks win over
// sentence endings, sentence endings over plain whitespace.
func boundaryBefore(text string, from, window int) (int, bool) {
	low := from - window
	if low < 0 {
		low = 0
	}

	if cut, ok := paragraphBreakBefore(text, low, from); ok {
		return cut, true
	}
	if cut, ok := sentenceEndBefore(text, low, from); ok {
		return cut, true
	}
	return whitespaceBefore(text, low, from)
}

// paragraphBreakBefore finds the last "\n\n" in text[low:from] and cuts
// after it, so the blank line stays with the earlier chunk.
func paragraphBreakBefore(text string, low, from int) (int, bool) {
	for i := from - 2; i >= low; i-- {
		if text[i] == '\n' && text[i+1] == '\n' {
			return i + 2, true
		}
	}
	return 0, false
}

// sentenceEndBefore finds the last sentence-ending punctuation followed
// by whitespace in text[low:from] and cuts after the punctuation.
func sentenceEndBefore(text string, low, from int) (int, bool) {
	for i := from - 2; i >= low; i-- {
		if isSentenceEnd(text[i]) && isSpace(text[i+1]) {
			return i + 1, true
		}
	}
	return 0, false
}

// whitespaceBefore finds the last whitespace byte in text[low:from] and
// cuts after it.
func whitespaceBefore(text string, low, from int) (int, bool) {
	for i := from - 1; i >= low; i-- {
		if isSpace(text[i]) {
			return i + 1, true
		}
	}
	return 0, false
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
