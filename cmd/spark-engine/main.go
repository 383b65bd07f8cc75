// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the spark-engine CLI: LLM-powered
// entity extraction from bibliographic records.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/spark-engine/internal/secrets"
	"github.com/pdiddy/spark-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the spark-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "spark-engine",
	Short: "LLM-powered data extraction from research paper titles and abstracts",
	Long: `spark-engine automates verbatim data extraction from research paper titles
and abstracts using Large Language Models. A user-defined schema names the
entities to extract and supplies a labeled example; the CLI ingests RIS or
CSV reference files, runs per-record extraction, and exports a flat results
table with per-entity statistics.

Each stage is a subcommand: schema, records, extract, runs, and stats.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", os.Stderr)
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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./spark-engine.yaml or ~/.config/spark-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("spark-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "spark-engine"))
		}
	}

	viper.SetEnvPrefix("SPARK_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig decodes the loaded config file into stage settings. Flags
// override these; missing keys leave zero values.
func pipelineConfig() types.PipelineConfig {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: ignoring invalid config:", err)
	}
	return cfg
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, so an
// interrupted batch stops launching new extraction calls.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
