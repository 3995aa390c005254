// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package continuity builds the contextual prefix injected into each
// chunk's prompt so formatting style and narrative flow persist across
// chunk boundaries.
package continuity

import (
	"fmt"
	"strings"

	"github.com/pdiddy/format-engine/pkg/types"
)

// BuildPrefix returns the continuity instruction for chunk, or an empty
// string for the first chunk. The prefix embeds the bounded tail of the
// previous successful output and tells the model to continue without
// repeating it. When the immediately preceding chunk failed, the prefix
// falls back to the last successful excerpt further back in history and
// says so, rather than aborting the run.
//
// Pure function of (fctx, chunk): no side effects, deterministic.
func BuildPrefix(fctx types.FormattingContext, chunk types.Chunk) string {
	if chunk.Index == 0 {
		return ""
	}

	excerpt := strings.TrimSpace(fctx.LastOutputExcerpt)
	if fctx.PreviousChunkFailed(chunk.Index) {
		if excerpt == "" {
			return "The previous part of this document could not be formatted. " +
				"Continue formatting from approximate context: pick up the document naturally, " +
				"without adding an introduction or referring to missing text."
		}
		return fmt.Sprintf("The previous part of this document could not be formatted. "+
			"Continue from approximate context. The last successfully formatted output ended with:\n\n%s\n\n"+
			"Continue formatting in the same style. Do not repeat or re-introduce this excerpt, "+
			"and do not refer to the gap.", excerpt)
	}

	if excerpt == "" {
		return ""
	}
	return fmt.Sprintf("The previous part of this document has already been formatted and ended with:\n\n%s\n\n"+
		"Continue formatting seamlessly from that point. Do not repeat or re-introduce this excerpt, "+
		"and do not add an introduction.", excerpt)
}

// BuildResumePrefix returns the continuity instruction for the first
// chunk of a run that resumes an earlier session over the same
// document. Within a single run the first chunk has no prior context
// (see BuildPrefix); across runs the persisted excerpt seeds it.
func BuildResumePrefix(fctx types.FormattingContext) string {
	excerpt := strings.TrimSpace(fctx.LastOutputExcerpt)
	if fctx.ProcessedCount == 0 || excerpt == "" {
		return ""
	}
	return fmt.Sprintf("An earlier run already formatted part of this material and ended with:\n\n%s\n\n"+
		"Format the following text in the same style. Do not repeat or re-introduce this excerpt.", excerpt)
}
