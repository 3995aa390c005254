// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/format-engine/internal/completion"
	"github.com/pdiddy/format-engine/internal/contextstore"
	"github.com/pdiddy/format-engine/internal/history"
	"github.com/pdiddy/format-engine/internal/session"
	"github.com/pdiddy/format-engine/pkg/types"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Format a document into structured Markdown",
	Long: `Format reads input text (a file via --input, a literal via --text, or
piped stdin), splits it into overlapping chunks when it exceeds the
chunk size, formats each chunk through the completion service with
continuity carried across chunk boundaries, and writes the stitched
result to the output file.

Chunks that fail to format are recorded as explicit markers in the
output instead of aborting the run.`,
	RunE: runFormat,
}

func init() {
	formatCmd.Flags().String("model", "gpt-4o", "completion model identifier")
	formatCmd.Flags().String("api-key", "", "completion API key (default: .secrets/openai-api-key or OPENAI_API_KEY)")
	formatCmd.Flags().Int("max-retries", 3, "retry attempts for rate-limited API calls")
	formatCmd.Flags().Duration("timeout", 5*time.Minute, "per-request HTTP timeout")
	formatCmd.Flags().String("input", "", "input file path (default: piped stdin)")
	formatCmd.Flags().String("text", "", "literal input text")
	formatCmd.Flags().String("prompt-file", "data/prompt.md", "base instruction prompt file")
	formatCmd.Flags().String("output", "data/output.md", "output file path")
	formatCmd.Flags().String("context-file", "data/context.yaml", "persisted session context file")
	formatCmd.Flags().Bool("no-context", false, "disable loading and saving session context")
	formatCmd.Flags().Int("max-chunk-size", 8000, "maximum chunk size in bytes")
	formatCmd.Flags().Int("overlap", 400, "overlap between consecutive chunks in bytes")
	formatCmd.Flags().Int("excerpt-limit", 500, "continuity excerpt size in bytes")
	formatCmd.Flags().String("data-dir", "data", "base directory for run history")

	rootCmd.AddCommand(formatCmd)
}

// formatConfig merges flags over the viper config file.
func formatConfig(cmd *cobra.Command) (types.FormatConfig, error) {
	for _, name := range []string{
		"model", "api-key", "max-retries", "timeout", "prompt-file",
		"output", "context-file", "max-chunk-size", "overlap",
		"excerpt-limit", "data-dir",
	} {
		if err := viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), cmd.Flags().Lookup(name)); err != nil {
			return types.FormatConfig{}, fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	contextEnabled := true
	if viper.IsSet("context_enabled") {
		contextEnabled = viper.GetBool("context_enabled")
	}
	if noContext, _ := cmd.Flags().GetBool("no-context"); noContext {
		contextEnabled = false
	}

	return types.FormatConfig{
		AIConfig: types.AIConfig{
			Model:      viper.GetString("model"),
			APIKey:     apiKey(viper.GetString("api_key")),
			MaxRetries: viper.GetInt("max_retries"),
			Timeout:    viper.GetDuration("timeout"),
		},
		ChunkingConfig: types.ChunkingConfig{
			MaxChunkSize: viper.GetInt("max_chunk_size"),
			OverlapSize:  viper.GetInt("overlap"),
			ExcerptLimit: viper.GetInt("excerpt_limit"),
		},
		PromptFile:     viper.GetString("prompt_file"),
		OutputFile:     viper.GetString("output"),
		ContextFile:    viper.GetString("context_file"),
		ContextEnabled: contextEnabled,
		DataDir:        viper.GetString("data_dir"),
	}, nil
}

// resolveInput builds the Document from --text, --input, or piped stdin,
// in that priority order.
func resolveInput(cmd *cobra.Command) (types.Document, error) {
	if text, _ := cmd.Flags().GetString("text"); text != "" {
		return types.NewDocument("inline", text)
	}

	if path, _ := cmd.Flags().GetString("input"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return types.Document{}, fmt.Errorf("reading input %s: %w", path, err)
		}
		return types.NewDocument(path, string(data))
	}

	info, err := os.Stdin.Stat()
	if err == nil && info.Mode()&os.ModeCharDevice == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return types.Document{}, fmt.Errorf("reading stdin: %w", err)
		}
		return types.NewDocument("stdin", string(data))
	}

	return types.Document{}, fmt.Errorf("no input: pass --input, --text, or pipe text on stdin: %w", types.ErrInvalidInput)
}

func loadBasePrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt file %s: %w", path, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("no formatting prompt found in %s: %w", path, types.ErrInvalidInput)
	}
	return prompt, nil
}

func runFormat(cmd *cobra.Command, args []string) error {
	cfg, err := formatConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.APIKey == "" {
		return fmt.Errorf("no API key: pass --api-key, create .secrets/openai-api-key, or set OPENAI_API_KEY")
	}

	doc, err := resolveInput(cmd)
	if err != nil {
		return err
	}

	basePrompt, err := loadBasePrompt(cfg.PromptFile)
	if err != nil {
		return err
	}

	var store contextstore.Store
	if cfg.ContextEnabled {
		store = contextstore.NewFileStore(cfg.ContextFile)
	}

	port := completion.NewClient(cfg.AIConfig)

	s := session.New(doc, basePrompt, port, store, cfg.ChunkingConfig)
	s.Progress = os.Stderr

	started := time.Now()
	outcome, runErr := s.Run(cmd.Context())
	if runErr != nil && !errors.Is(runErr, types.ErrPersistenceFailure) {
		return runErr
	}

	if err := writeOutput(cfg.OutputFile, outcome.Output); err != nil {
		return err
	}

	recordRun(cmd, cfg.DataDir, history.Run{
		SourceID:    doc.SourceID,
		StartedAt:   started,
		CompletedAt: time.Now(),
		Chunks:      len(outcome.Results),
		Failures:    outcome.Failures,
		State:       string(outcome.State),
	})

	fmt.Fprintf(os.Stderr, "%s: %d parts, %d failed, wrote %s\n",
		outcome.State, len(outcome.Results), outcome.Failures, cfg.OutputFile)

	// A failed context save is reported after the output is safely on
	// disk; the produced document is never discarded.
	return runErr
}

func writeOutput(path, output string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(output+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing output %s: %w", path, err)
	}
	return nil
}

// recordRun stores the run in history. History is bookkeeping; a
// failure here warns but never fails the command.
func recordRun(cmd *cobra.Command, dataDir string, run history.Run) {
	store, err := history.NewStore(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open run history: %v\n", err)
		return
	}
	defer store.Close()

	if _, err := store.RecordRun(cmd.Context(), run); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record run: %v\n", err)
	}
}
