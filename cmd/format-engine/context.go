// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/format-engine/internal/contextstore"
	"github.com/pdiddy/format-engine/pkg/types"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Inspect or clear the persisted session context",
}

var contextShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted session context",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("context-file")
		fctx, err := contextstore.NewFileStore(path).Load()
		if err != nil {
			return err
		}

		fmt.Printf("processed chunks: %d\n", fctx.ProcessedCount)
		if fctx.LastOutputExcerpt != "" {
			fmt.Printf("last output excerpt (%d bytes):\n%s\n", len(fctx.LastOutputExcerpt), excerptPreview(fctx))
		}
		if len(fctx.AccumulatedErrors) > 0 {
			fmt.Printf("accumulated errors: %d\n", len(fctx.AccumulatedErrors))
			for _, e := range fctx.AccumulatedErrors {
				fmt.Printf("  chunk %d: %s\n", e.ChunkIndex, e.ErrorDetail)
			}
		}
		return nil
	},
}

var contextClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the persisted session context",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("context-file")
		if err := contextstore.NewFileStore(path).Clear(); err != nil {
			return err
		}
		fmt.Println("context cleared")
		return nil
	},
}

const previewLimit = 300

func excerptPreview(fctx types.FormattingContext) string {
	return types.Tail(fctx.LastOutputExcerpt, previewLimit)
}

func init() {
	contextCmd.PersistentFlags().String("context-file", "data/context.yaml", "persisted session context file")
	contextCmd.AddCommand(contextShowCmd)
	contextCmd.AddCommand(contextClearCmd)
	rootCmd.AddCommand(contextCmd)
}
