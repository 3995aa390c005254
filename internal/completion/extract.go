// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"fmt"
	"strings"

	"github.com/pdiddy/format-engine/pkg/types"
)

// Extraction is the text recovered from a completion Result. Warning is
// set when the text came from the last-resort string conversion and the
// caller should surface a non-fatal warning.
type Extraction struct {
	Text    string
	Warning bool
}

// Extract recovers the textual payload from a completion result by
// trying an ordered list of strategies, first success wins:
//
//  1. a ready-made aggregated text field (output_text, else the first
//     non-empty chat choice), returned trimmed;
//  2. the first output item tagged as textual output;
//  3. a best-effort string conversion of the whole raw payload, with
//     Warning set.
//
// It fails with ErrExtractionFailed only when every strategy yields
// nothing. The layering tolerates schema drift upstream without
// hard-failing the pipeline.
func Extract(res Result) (Extraction, error) {
	for _, strategy := range strategies {
		if ext, ok := strategy(res); ok {
			return ext, nil
		}
	}
	return Extraction{}, fmt.Errorf("no text in completion result: %w", types.ErrExtractionFailed)
}

// strategies is the fixed priority order; each is a pure function.
var strategies = []func(Result) (Extraction, bool){
	extractAggregated,
	extractOutputItems,
	extractRaw,
}

func extractAggregated(res Result) (Extraction, bool) {
	if text := strings.TrimSpace(res.OutputText); text != "" {
		return Extraction{Text: text}, true
	}
	for _, choice := range res.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return Extraction{Text: text}, true
		}
	}
	return Extraction{}, false
}

func extractOutputItems(res Result) (Extraction, bool) {
	for _, item := range res.Output {
		if item.Type != "output_text" {
			continue
		}
		text := item.Text
		if text == "" {
			text = item.Content
		}
		if text != "" {
			return Extraction{Text: text}, true
		}
	}
	return Extraction{}, false
}

func extractRaw(res Result) (Extraction, bool) {
	text := strings.TrimSpace(string(res.Raw))
	if text == "" {
		return Extraction{}, false
	}
	return Extraction{Text: text, Warning: true}, true
}
