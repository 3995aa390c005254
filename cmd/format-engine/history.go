// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/format-engine/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent formatting runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := history.NewStore(dataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.RecentRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %-24s %2d parts  %d failed  %-22s %s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.SourceID, r.Chunks, r.Failures, r.State, r.Duration().Round(time.Second))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("data-dir", "data", "base directory for run history")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	rootCmd.AddCommand(historyCmd)
}
