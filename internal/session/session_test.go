// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/format-engine/internal/completion"
	"github.com/pdiddy/format-engine/internal/contextstore"
	"github.com/pdiddy/format-engine/pkg/types"
)

// --- mock completion port ---

// mockPort formats every prompt into "formatted:<n>" where n is the
// call ordinal, and records the prompts it saw.
type mockPort struct {
	prompts  []string
	failOn   map[int]error // call ordinal (1-based) → forced error
	response func(call int) completion.Result
}

func (m *mockPort) Complete(_ context.Context, prompt string) (completion.Result, error) {
	m.prompts = append(m.prompts, prompt)
	call := len(m.prompts)
	if err, ok := m.failOn[call]; ok {
		return completion.Result{}, err
	}
	if m.response != nil {
		return m.response(call), nil
	}
	return completion.Result{OutputText: fmt.Sprintf("formatted:%d", call)}, nil
}

func testDoc(t *testing.T, text string) types.Document {
	t.Helper()
	d, err := types.NewDocument("test.md", text)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// multiChunkText yields several chunks under the test config.
func multiChunkText() string {
	paragraph := strings.TrimSpace(strings.Repeat("word ", 16)) // 79 bytes
	return paragraph + "\n\n" + paragraph + "\n\n" + paragraph
}

var testCfg = types.ChunkingConfig{MaxChunkSize: 100, OverlapSize: 20, ExcerptLimit: 50}

// failStore forces persistence failures at either session boundary.
type failStore struct {
	loadErr error
	saveErr error
	saved   *types.FormattingContext
}

func (f *failStore) Load() (types.FormattingContext, error) {
	if f.loadErr != nil {
		return types.FormattingContext{}, f.loadErr
	}
	return types.FormattingContext{}, nil
}

func (f *failStore) Save(fctx types.FormattingContext) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = &fctx
	return nil
}

func TestRun_AllChunksSucceed(t *testing.T) {
	port := &mockPort{}
	s := New(testDoc(t, multiChunkText()), "Format as Markdown.", port, nil, testCfg)

	if s.State() != StateIdle {
		t.Fatalf("new session state = %s, want idle", s.State())
	}

	outcome, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if outcome.State != StateCompleted || s.State() != StateCompleted {
		t.Errorf("state = %s, want completed", outcome.State)
	}
	if outcome.Failures != 0 {
		t.Errorf("failures = %d, want 0", outcome.Failures)
	}
	if len(outcome.Results) != len(port.prompts) {
		t.Errorf("got %d results for %d calls", len(outcome.Results), len(port.prompts))
	}
	for i, r := range outcome.Results {
		if r.Status != types.StatusSucceeded || r.ChunkIndex != i {
			t.Errorf("result %d = %+v", i, r)
		}
	}

	want := make([]string, len(port.prompts))
	for i := range want {
		want[i] = fmt.Sprintf("formatted:%d", i+1)
	}
	if outcome.Output != strings.Join(want, "\n\n") {
		t.Errorf("output = %q", outcome.Output)
	}
	if s.Context().ProcessedCount != len(port.prompts) {
		t.Errorf("processed count = %d, want %d", s.Context().ProcessedCount, len(port.prompts))
	}
}

func TestRun_PartialFailureContinues(t *testing.T) {
	port := &mockPort{failOn: map[int]error{2: fmt.Errorf("rate limited: %w", types.ErrCompletionFailure)}}
	s := New(testDoc(t, multiChunkText()), "Format as Markdown.", port, nil, testCfg)

	outcome, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if outcome.State != StateCompletedWithErrors {
		t.Errorf("state = %s, want completed_with_errors", outcome.State)
	}
	if outcome.Failures != 1 {
		t.Errorf("failures = %d, want 1", outcome.Failures)
	}
	// Every chunk was attempted despite the failure.
	if len(outcome.Results) < 3 {
		t.Fatalf("got %d results, want all chunks attempted", len(outcome.Results))
	}
	if outcome.Results[1].Status != types.StatusFailed || outcome.Results[1].ErrorDetail == "" {
		t.Errorf("result 1 = %+v, want failed with detail", outcome.Results[1])
	}

	if !strings.Contains(outcome.Output, "[formatting failed for part 2 of") {
		t.Errorf("output missing failure marker:\n%s", outcome.Output)
	}
	if !strings.Contains(outcome.Output, fmt.Sprintf("[1 of %d parts failed to format]", len(outcome.Results))) {
		t.Errorf("output missing failure summary:\n%s", outcome.Output)
	}

	// The chunk after the failure is told to continue from approximate context.
	if !strings.Contains(port.prompts[2], "approximate context") {
		t.Errorf("prompt 3 missing degraded continuity:\n%s", port.prompts[2])
	}

	errs := s.Context().AccumulatedErrors
	if len(errs) != 1 || errs[0].ChunkIndex != 1 {
		t.Errorf("accumulated errors = %+v", errs)
	}
}

func TestRun_ContinuityPrefixFlowsBetweenChunks(t *testing.T) {
	port := &mockPort{}
	s := New(testDoc(t, multiChunkText()), "Format as Markdown.", port, nil, testCfg)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(port.prompts[0], "## Context") {
		t.Errorf("first chunk should have no continuity section:\n%s", port.prompts[0])
	}
	if !strings.Contains(port.prompts[1], "formatted:1") {
		t.Errorf("second prompt missing first chunk's output excerpt:\n%s", port.prompts[1])
	}
	if !strings.Contains(port.prompts[1], "## Context") {
		t.Errorf("second prompt missing context section:\n%s", port.prompts[1])
	}
	for i, p := range port.prompts {
		if !strings.Contains(p, "## Instructions") || !strings.Contains(p, "Format as Markdown.") {
			t.Errorf("prompt %d missing instructions section:\n%s", i, p)
		}
	}
	if !strings.Contains(port.prompts[0], "# Text to Format (Part 1 of") {
		t.Errorf("prompt 1 missing part header:\n%s", port.prompts[0])
	}
}

func TestRun_SingleChunkPromptHasNoPartHeader(t *testing.T) {
	port := &mockPort{}
	s := New(testDoc(t, "short document"), "Format as Markdown.", port, nil, testCfg)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(port.prompts) != 1 {
		t.Fatalf("got %d calls, want 1", len(port.prompts))
	}
	if !strings.Contains(port.prompts[0], "# Text to Format:") {
		t.Errorf("single-chunk prompt missing plain header:\n%s", port.prompts[0])
	}
	if strings.Contains(port.prompts[0], "Part 1 of") {
		t.Errorf("single-chunk prompt should not mention parts:\n%s", port.prompts[0])
	}
}

func TestRun_FailsFastOnBadConfiguration(t *testing.T) {
	port := &mockPort{}
	cfg := types.ChunkingConfig{MaxChunkSize: 100, OverlapSize: 100}
	s := New(testDoc(t, multiChunkText()), "prompt", port, nil, cfg)

	_, err := s.Run(context.Background())
	if !errors.Is(err, types.ErrInvalidConfiguration) {
		t.Fatalf("Run() error = %v, want ErrInvalidConfiguration", err)
	}
	if len(port.prompts) != 0 {
		t.Errorf("completion port was called %d times before validation", len(port.prompts))
	}
	if s.State() != StateFailed {
		t.Errorf("state after aborted run = %s, want failed", s.State())
	}
}

func TestRun_SessionIsSingleUse(t *testing.T) {
	s := New(testDoc(t, "short"), "prompt", &mockPort{}, nil, testCfg)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("second Run() succeeded, want error")
	}
}

func TestRun_ExtractionFailureIsRecoverable(t *testing.T) {
	port := &mockPort{response: func(call int) completion.Result {
		if call == 1 {
			return completion.Result{} // nothing extractable
		}
		return completion.Result{OutputText: fmt.Sprintf("formatted:%d", call)}
	}}
	s := New(testDoc(t, multiChunkText()), "prompt", port, nil, testCfg)

	outcome, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.State != StateCompletedWithErrors || outcome.Failures != 1 {
		t.Fatalf("outcome = %+v, want one recoverable extraction failure", outcome)
	}
	if outcome.Results[0].Status != types.StatusFailed {
		t.Errorf("result 0 = %+v, want failed", outcome.Results[0])
	}
}

func TestRun_PersistsContextAcrossRuns(t *testing.T) {
	store := contextstore.NewFileStore(filepath.Join(t.TempDir(), "context.yaml"))
	text := multiChunkText()

	first := New(testDoc(t, text), "prompt", &mockPort{}, store, testCfg)
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	saved, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if saved.ProcessedCount == 0 || saved.LastOutputExcerpt == "" {
		t.Fatalf("saved context = %+v, want progress recorded", saved)
	}

	// The next run's first chunk is seeded from the prior run's excerpt.
	port := &mockPort{}
	second := New(testDoc(t, text), "prompt", port, store, testCfg)
	if _, err := second.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(port.prompts[0], saved.LastOutputExcerpt) {
		t.Errorf("resumed run's first prompt missing prior excerpt:\n%s", port.prompts[0])
	}
	if !strings.Contains(port.prompts[0], "earlier run") {
		t.Errorf("resumed run's first prompt missing resume wording:\n%s", port.prompts[0])
	}
}

func TestRun_StaleFailuresDoNotDegradeResumedRun(t *testing.T) {
	store := contextstore.NewFileStore(filepath.Join(t.TempDir(), "context.yaml"))
	seed := types.FormattingContext{
		ProcessedCount:    1,
		LastOutputExcerpt: "prior run tail",
		AccumulatedErrors: []types.ChunkError{{ChunkIndex: 0, ErrorDetail: "rate limited"}},
	}
	if err := store.Save(seed); err != nil {
		t.Fatal(err)
	}

	port := &mockPort{}
	s := New(testDoc(t, multiChunkText()), "prompt", port, store, testCfg)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// The prior run's failure record belongs to that run; with every
	// chunk here succeeding, no prompt may carry degraded continuity.
	for i, p := range port.prompts {
		if strings.Contains(p, "could not be formatted") || strings.Contains(p, "approximate context") {
			t.Errorf("prompt %d degraded by a stale failure record:\n%s", i, p)
		}
	}
	// The excerpt still seeds the resumed first chunk.
	if !strings.Contains(port.prompts[0], "prior run tail") {
		t.Errorf("resumed first prompt missing prior excerpt:\n%s", port.prompts[0])
	}

	saved, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.AccumulatedErrors) != 0 {
		t.Errorf("stale errors persisted past a clean run: %+v", saved.AccumulatedErrors)
	}
}

func TestRun_SaveFailureKeepsOutput(t *testing.T) {
	store := &failStore{saveErr: fmt.Errorf("disk full: %w", types.ErrPersistenceFailure)}
	s := New(testDoc(t, multiChunkText()), "prompt", &mockPort{}, store, testCfg)

	outcome, err := s.Run(context.Background())
	if !errors.Is(err, types.ErrPersistenceFailure) {
		t.Fatalf("Run() error = %v, want ErrPersistenceFailure", err)
	}
	if outcome.Output == "" {
		t.Error("save failure erased the produced output")
	}
	if outcome.State != StateCompleted || outcome.Failures != 0 {
		t.Errorf("outcome = %+v, want completed with no chunk failures", outcome)
	}
}

func TestRun_LoadFailureStartsFresh(t *testing.T) {
	store := &failStore{loadErr: fmt.Errorf("permission denied: %w", types.ErrPersistenceFailure)}
	port := &mockPort{}
	var progress bytes.Buffer

	s := New(testDoc(t, multiChunkText()), "prompt", port, store, testCfg)
	s.Progress = &progress

	outcome, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.State != StateCompleted {
		t.Errorf("state = %s, want completed despite the load failure", outcome.State)
	}
	if len(outcome.Results) != len(port.prompts) || len(outcome.Results) < 2 {
		t.Errorf("got %d results for %d calls, want every chunk processed", len(outcome.Results), len(port.prompts))
	}
	if !strings.Contains(progress.String(), "starting fresh") {
		t.Errorf("progress output missing load warning:\n%s", progress.String())
	}
	if store.saved == nil {
		t.Error("context was not saved at the end of the run")
	}
}

func TestRun_ExcerptIsBounded(t *testing.T) {
	long := strings.Repeat("0123456789", 30) // 300 bytes per output
	port := &mockPort{response: func(int) completion.Result {
		return completion.Result{OutputText: long}
	}}
	s := New(testDoc(t, multiChunkText()), "prompt", port, nil, testCfg)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Context().LastOutputExcerpt); got > testCfg.ExcerptLimit {
		t.Errorf("excerpt length = %d, want <= %d", got, testCfg.ExcerptLimit)
	}
}
