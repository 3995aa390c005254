// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/format-engine/internal/httputil"
	"github.com/pdiddy/format-engine/pkg/types"
)

// chatCompletionsURL is the OpenAI API endpoint. Package-level var for
// test substitution.
var chatCompletionsURL = "https://api.openai.com/v1/chat/completions"

// Client calls the OpenAI chat-completions API to format one chunk of
// text per request.
type Client struct {
	APIKey     string
	Model      string
	MaxRetries int
	HTTPClient *http.Client
}

// NewClient builds a Client from the AI configuration.
func NewClient(cfg types.AIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		MaxRetries: cfg.MaxRetries,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// chatRequest is the request body for the chat-completions API.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatMessage is a single message in the conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends the merged prompt as a single user message. Rate
// limits and transient upstream failures are retried with backoff;
// every other non-2xx status wraps ErrCompletionFailure. The response
// body is decoded leniently: whatever fields the service returns land
// in Result, and the raw body is kept for last-resort extraction.
func (c *Client) Complete(ctx context.Context, prompt string) (Result, error) {
	reqBody := chatRequest{
		Model:    c.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatCompletionsURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return Result{}, fmt.Errorf("calling completion API: %w: %w", err, types.ErrCompletionFailure)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading completion response: %w: %w", err, types.ErrCompletionFailure)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("completion API returned %d: %s: %w",
			resp.StatusCode, truncate(string(respBody), 200), types.ErrCompletionFailure)
	}

	var result Result
	// A body that is not the expected JSON is not an error here; the
	// extractor's fallback strategies deal with it.
	_ = json.Unmarshal(respBody, &result)
	result.Raw = respBody

	return result, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
