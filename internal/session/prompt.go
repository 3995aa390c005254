// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"fmt"
	"strings"

	"github.com/pdiddy/format-engine/pkg/types"
)

const sectionDivider = "---"

// buildPrompt merges the base instructions, the continuity prefix, and
// the chunk text into one prompt. Sections are separated by blank
// lines; the content section is introduced by a divider and a part
// header so the model knows where instructions end and text begins.
func buildPrompt(basePrompt, continuityPrefix string, c types.Chunk, total int) string {
	var sections []string

	if continuityPrefix != "" {
		sections = append(sections, "## Context\n\n"+continuityPrefix)
	}

	instructions := basePrompt
	if extra := chunkInstructions(c, total); extra != "" {
		instructions += "\n\n" + extra
	}
	if instructions != "" {
		sections = append(sections, "## Instructions\n\n"+instructions)
	}

	sections = append(sections, sectionDivider+"\n\n"+contentHeader(c, total)+"\n\n"+c.Text)

	return strings.Join(sections, "\n\n")
}

// contentHeader labels the chunk with its position so multi-part runs
// stay distinguishable in saved prompts.
func contentHeader(c types.Chunk, total int) string {
	if total <= 1 {
		return "# Text to Format:"
	}
	return fmt.Sprintf("# Text to Format (Part %d of %d):", c.Index+1, total)
}

// chunkInstructions returns position-specific continuity rules for
// multi-part runs. Outputs are concatenated verbatim, so every part is
// told to flow into the next without preamble or wrap-up.
func chunkInstructions(c types.Chunk, total int) string {
	if total <= 1 {
		return ""
	}

	var rules []string
	switch {
	case c.Index == 0:
		rules = []string{
			fmt.Sprintf("This is part 1 of %d of a larger document that has been split for processing.", total),
			"Begin formatting from the very first word without any preamble.",
			"Establish a consistent style and keep it for the whole part.",
			"End where the text cuts off. Do not add conclusions or note that the text continues.",
		}
	case c.Index == total-1:
		rules = []string{
			fmt.Sprintf("This is the final part (%d of %d) of a larger document.", c.Index+1, total),
			"Continue exactly where the previous part left off, even mid-sentence.",
			"Keep the same style and formatting as the previous parts.",
			"Complete the document naturally. Do not mention that it was split.",
		}
	default:
		rules = []string{
			fmt.Sprintf("This is part %d of %d of a larger document.", c.Index+1, total),
			"Continue exactly where the previous part left off, even mid-sentence.",
			"Keep the same style and formatting as the previous parts.",
			"End where the text cuts off. Do not add introductions or conclusions.",
		}
	}
	if c.HardSplit {
		rules = append(rules, "This part was cut at an arbitrary position, so it may end mid-word.")
	}

	return "Continuity rules:\n- " + strings.Join(rules, "\n- ")
}
