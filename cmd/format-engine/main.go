// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the format-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/format-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// apiKey resolves the completion API key: an explicit value wins, then
// the .secrets/ directory, then the conventional environment variable.
func apiKey(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v, ok := loadedSecrets["openai-api-key"]; ok {
		return v
	}
	return os.Getenv("OPENAI_API_KEY")
}

// rootCmd is the base command for the format-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "format-engine",
	Short: "Format text into structured Markdown with an LLM",
	Long: `format-engine turns arbitrary input text into structured Markdown by
delegating to a text-completion service. Documents larger than the
model's practical prompt budget are split into overlapping chunks,
processed in order, and stitched back together with continuity
preserved across chunk boundaries.

The format subcommand runs a session; context inspects or clears the
persisted session context; history lists earlier runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./format-engine.yaml or ~/.config/format-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("format-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "format-engine"))
		}
	}

	viper.SetEnvPrefix("FORMAT_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
