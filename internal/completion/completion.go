// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package completion defines the boundary to the text-completion
// service: the Port interface the session calls, the drift-tolerant
// Result payload, and the extraction of text from it.
package completion

import (
	"context"
	"encoding/json"
)

// Port abstracts the completion service so tests can supply a mock.
// Complete sends one merged prompt and returns the raw service result;
// the caller never inspects the result's concrete shape except through
// Extract.
type Port interface {
	Complete(ctx context.Context, prompt string) (Result, error)
}

// Result is the decoded completion payload. Completion services have
// shipped several response shapes over time; Result keeps all known
// fields optional plus the raw body, and Extract decides which one to
// trust.
type Result struct {
	// OutputText is the aggregated text field some response shapes
	// expose directly.
	OutputText string `json:"output_text"`

	// Choices is the chat-completions shape.
	Choices []Choice `json:"choices"`

	// Output is the ordered output-item list shape.
	Output []OutputItem `json:"output"`

	// Raw is the undecoded response body, kept for the last-resort
	// extraction strategy.
	Raw json.RawMessage `json:"-"`
}

// Choice is one chat-completions choice.
type Choice struct {
	Message Message `json:"message"`
}

// Message is the message inside a chat-completions choice.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OutputItem is one entry in the output-item list shape.
type OutputItem struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Content string `json:"content"`
}
