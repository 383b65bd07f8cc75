// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newResultsDirCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("results-dir", "results", "")
	return cmd
}

func TestResultsDirPrecedence(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("flag default without config", func(t *testing.T) {
		viper.Reset()
		if got := resultsDir(newResultsDirCmd()); got != "results" {
			t.Errorf("resultsDir() = %q, want %q", got, "results")
		}
	})

	t.Run("config file overrides flag default", func(t *testing.T) {
		viper.Reset()
		viper.Set("store.results_dir", "archive")
		if got := resultsDir(newResultsDirCmd()); got != "archive" {
			t.Errorf("resultsDir() = %q, want %q", got, "archive")
		}
	})

	t.Run("explicit flag wins over config", func(t *testing.T) {
		viper.Reset()
		viper.Set("store.results_dir", "archive")
		cmd := newResultsDirCmd()
		if err := cmd.Flags().Set("results-dir", "elsewhere"); err != nil {
			t.Fatal(err)
		}
		if got := resultsDir(cmd); got != "elsewhere" {
			t.Errorf("resultsDir() = %q, want %q", got, "elsewhere")
		}
	})
}
