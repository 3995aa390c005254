// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session orchestrates a formatting run: split the document,
// then for each chunk build the merged prompt, invoke the completion
// port, extract the output, and carry the session context forward.
package session

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/format-engine/internal/chunk"
	"github.com/pdiddy/format-engine/internal/completion"
	"github.com/pdiddy/format-engine/internal/continuity"
	"github.com/pdiddy/format-engine/internal/contextstore"
	"github.com/pdiddy/format-engine/pkg/types"
)

// State is the lifecycle phase of a Session.
type State string

const (
	StateIdle                State = "idle"
	StateRunning             State = "running"
	StateCompleted           State = "completed"
	StateCompletedWithErrors State = "completed_with_errors"

	// StateFailed is the terminal state of a run aborted by input or
	// configuration validation, before any chunk was processed.
	StateFailed State = "failed"
)

const defaultExcerptLimit = 500

// Session runs the chunk loop for one document. It exclusively owns the
// FormattingContext; chunks are processed strictly in index order
// because each depends on the continuity state of the previous one.
// A Session is single-use: once run it never returns to idle.
type Session struct {
	doc        types.Document
	basePrompt string
	port       completion.Port
	store      contextstore.Store
	cfg        types.ChunkingConfig

	state   State
	fctx    types.FormattingContext
	results []types.ProcessingResult

	// Progress is where per-chunk progress lines are written.
	// Defaults to io.Discard.
	Progress io.Writer
}

// Outcome is the result of a completed run.
type Outcome struct {
	// Output is the ordered concatenation of successful chunk outputs,
	// with an explicit inline marker for every failed chunk.
	Output string

	// Results holds the per-chunk outcomes in order.
	Results []types.ProcessingResult

	// Failures is the number of failed chunks.
	Failures int

	// State is the final session state.
	State State
}

// New builds a session over doc. store may be nil to disable context
// persistence; everything else is required.
func New(doc types.Document, basePrompt string, port completion.Port, store contextstore.Store, cfg types.ChunkingConfig) *Session {
	return &Session{
		doc:        doc,
		basePrompt: basePrompt,
		port:       port,
		store:      store,
		cfg:        cfg,
		state:      StateIdle,
		Progress:   io.Discard,
	}
}

// State returns the session's current lifecycle phase.
func (s *Session) State() State {
	return s.state
}

// Context returns a copy of the session's formatting context.
func (s *Session) Context() types.FormattingContext {
	return s.fctx
}

// Run executes the chunk loop. Configuration and input errors abort
// before any chunk is processed; per-chunk failures are recorded and
// skipped so the run always yields a best-effort output. The persisted
// context is loaded once at the start (a load failure degrades to an
// empty context with a warning) and saved once at the end (a save
// failure is returned alongside the still-valid Outcome).
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	if s.state != StateIdle {
		return Outcome{}, fmt.Errorf("session already ran (state %s)", s.state)
	}
	s.state = StateRunning

	chunks, err := chunk.Split(s.doc, s.cfg.MaxChunkSize, s.cfg.OverlapSize)
	if err != nil {
		s.state = StateFailed
		return Outcome{}, fmt.Errorf("splitting document %s: %w", s.doc.SourceID, err)
	}

	if s.store != nil {
		fctx, err := s.store.Load()
		if err != nil {
			fmt.Fprintf(s.Progress, "warning: could not load context, starting fresh: %v\n", err)
		} else {
			// Only continuity state carries over between runs. Failures
			// belong to the run that recorded them; a stale one would
			// wrongly degrade this run's first prefixes.
			fctx.AccumulatedErrors = nil
			s.fctx = fctx
		}
	}

	excerptLimit := s.cfg.ExcerptLimit
	if excerptLimit <= 0 {
		excerptLimit = defaultExcerptLimit
	}

	for _, c := range chunks {
		fmt.Fprintf(s.Progress, "formatting part %d/%d (%d bytes)\n", c.Index+1, len(chunks), len(c.Text))
		s.results = append(s.results, s.processChunk(ctx, c, len(chunks), excerptLimit))
	}

	outcome := s.assemble(len(chunks))
	s.state = outcome.State

	if s.store != nil {
		if err := s.store.Save(s.fctx); err != nil {
			return outcome, fmt.Errorf("saving context: %w", err)
		}
	}

	return outcome, nil
}

// processChunk runs one chunk through the prompt/complete/extract steps
// and updates the session context. Failures are converted into a Failed
// result, never an abort.
func (s *Session) processChunk(ctx context.Context, c types.Chunk, total, excerptLimit int) types.ProcessingResult {
	prefix := continuity.BuildPrefix(s.fctx, c)
	if c.Index == 0 {
		// A resumed run seeds the first chunk from the prior run's excerpt.
		prefix = continuity.BuildResumePrefix(s.fctx)
	}
	prompt := buildPrompt(s.basePrompt, prefix, c, total)

	raw, err := s.port.Complete(ctx, prompt)
	if err != nil {
		return s.fail(c, fmt.Errorf("completing part %d: %w", c.Index+1, err))
	}

	ext, err := completion.Extract(raw)
	if err != nil {
		return s.fail(c, fmt.Errorf("extracting part %d: %w", c.Index+1, err))
	}
	if ext.Warning {
		fmt.Fprintf(s.Progress, "warning: part %d used a fallback extraction of the raw response\n", c.Index+1)
	}

	s.fctx.RecordSuccess(ext.Text, excerptLimit)
	return types.ProcessingResult{
		ChunkIndex: c.Index,
		OutputText: ext.Text,
		Status:     types.StatusSucceeded,
	}
}

func (s *Session) fail(c types.Chunk, err error) types.ProcessingResult {
	fmt.Fprintf(s.Progress, "failed  part %d: %v\n", c.Index+1, err)
	s.fctx.RecordFailure(c.Index, err.Error())
	return types.ProcessingResult{
		ChunkIndex:  c.Index,
		Status:      types.StatusFailed,
		ErrorDetail: err.Error(),
	}
}

// assemble builds the final document: successful outputs in order,
// failed chunks rendered as explicit markers so nothing is silently
// lost, plus a trailing failure summary when any chunk failed.
func (s *Session) assemble(total int) Outcome {
	var parts []string
	failures := 0
	for _, r := range s.results {
		if r.Status == types.StatusSucceeded {
			parts = append(parts, r.OutputText)
			continue
		}
		failures++
		parts = append(parts, fmt.Sprintf("[formatting failed for part %d of %d: %s]", r.ChunkIndex+1, total, r.ErrorDetail))
	}
	if failures > 0 {
		parts = append(parts, fmt.Sprintf("[%d of %d parts failed to format]", failures, total))
	}

	state := StateCompleted
	if failures > 0 {
		state = StateCompletedWithErrors
	}
	return Outcome{
		Output:   strings.Join(parts, "\n\n"),
		Results:  s.results,
		Failures: failures,
		State:    state,
	}
}
