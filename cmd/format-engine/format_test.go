// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatConfig_ContextEnabled(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name        string
		configValue *bool // context_enabled in the config file, nil = unset
		noContext   bool  // --no-context flag
		want        bool
	}{
		{name: "enabled by default", configValue: nil, noContext: false, want: true},
		{name: "config file disables", configValue: boolPtr(false), noContext: false, want: false},
		{name: "config file enables", configValue: boolPtr(true), noContext: false, want: true},
		{name: "flag overrides config", configValue: boolPtr(true), noContext: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			if tt.configValue != nil {
				viper.Set("context_enabled", *tt.configValue)
			}
			if tt.noContext {
				require.NoError(t, formatCmd.Flags().Set("no-context", "true"))
				t.Cleanup(func() { _ = formatCmd.Flags().Set("no-context", "false") })
			}

			cfg, err := formatConfig(formatCmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.ContextEnabled)
		})
	}
}
