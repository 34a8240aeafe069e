// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the symptom-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/symptom-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the symptom-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "symptom-engine",
	Short: "Mine symptom co-occurrence patterns and rank under-studied findings",
	Long: `symptom-engine analyzes tagged patient-report records: it mines frequent
co-occurring symptom sets into directional association rules, tests which
tag frequencies are statistically notable, cross-references each tag
against an independent literature count, and ranks findings by a surprise
score combining report frequency with inverse evidence coverage.

Each stage is a subcommand: count, mine, evidence, and score inspect a
single stage; run executes the full pipeline and persists its artifacts.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./symptom-engine.yaml or ~/.config/symptom-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("symptom-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "symptom-engine"))
		}
	}

	viper.SetEnvPrefix("SYMPTOM_ENGINE")
	viper.AutomaticEnv()

	def := types.DefaultConfig()
	viper.SetDefault("data_file", def.DataFile)
	viper.SetDefault("analysis_dir", def.AnalysisDir)
	viper.SetDefault("miner.min_support_fraction", def.Miner.MinSupportFraction)
	viper.SetDefault("miner.min_confidence", def.Miner.MinConfidence)
	viper.SetDefault("miner.min_lift", def.Miner.MinLift)
	viper.SetDefault("significance.alpha", def.Significance.Alpha)
	viper.SetDefault("evidence.concurrency", def.Evidence.Concurrency)
	viper.SetDefault("evidence.max_retries", def.Evidence.MaxRetries)
	viper.SetDefault("evidence.lookup_timeout", def.Evidence.LookupTimeout)
	viper.SetDefault("evidence.retry_base_delay", def.Evidence.RetryBaseDelay)
	viper.SetDefault("evidence.min_lookup_interval", def.Evidence.MinLookupInterval)
	viper.SetDefault("evidence.cache_path", def.Evidence.CachePath)
	viper.SetDefault("evidence.counts_file", def.Evidence.CountsFile)
	viper.SetDefault("scoring.coverage_saturation", def.Scoring.CoverageSaturation)
	viper.SetDefault("scoring.surprise_high", def.Scoring.SurpriseHigh)
	viper.SetDefault("scoring.surprise_moderate", def.Scoring.SurpriseModerate)
	viper.SetDefault("scoring.tier2_min_count", def.Scoring.Tier2MinCount)
	viper.SetDefault("scoring.tier3_min_frequency", def.Scoring.Tier3MinFrequency)
	viper.SetDefault("scoring.allowlist_file", def.Scoring.AllowlistFile)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// engineConfig builds the explicit configuration struct the engine
// consumes. Everything downstream of this function sees only the
// struct, never the environment.
func engineConfig() types.Config {
	return types.Config{
		DataFile:    viper.GetString("data_file"),
		AnalysisDir: viper.GetString("analysis_dir"),
		Miner: types.MinerConfig{
			MinSupportFraction: viper.GetFloat64("miner.min_support_fraction"),
			MinConfidence:      viper.GetFloat64("miner.min_confidence"),
			MinLift:            viper.GetFloat64("miner.min_lift"),
		},
		Significance: types.SignificanceConfig{
			Alpha: viper.GetFloat64("significance.alpha"),
		},
		Evidence: types.EvidenceConfig{
			Concurrency:       viper.GetInt("evidence.concurrency"),
			MaxRetries:        viper.GetInt("evidence.max_retries"),
			LookupTimeout:     viper.GetDuration("evidence.lookup_timeout"),
			RetryBaseDelay:    viper.GetDuration("evidence.retry_base_delay"),
			MinLookupInterval: viper.GetDuration("evidence.min_lookup_interval"),
			CachePath:         viper.GetString("evidence.cache_path"),
			CountsFile:        viper.GetString("evidence.counts_file"),
		},
		Scoring: types.ScoringConfig{
			CoverageSaturation: viper.GetInt64("scoring.coverage_saturation"),
			SurpriseHigh:       viper.GetFloat64("scoring.surprise_high"),
			SurpriseModerate:   viper.GetFloat64("scoring.surprise_moderate"),
			Tier2MinCount:      viper.GetInt64("scoring.tier2_min_count"),
			Tier3MinFrequency:  viper.GetFloat64("scoring.tier3_min_frequency"),
			AllowlistFile:      viper.GetString("scoring.allowlist_file"),
		},
	}
}

// applyCommonFlags overlays per-command flag values on the config.
func applyCommonFlags(cmd *cobra.Command, cfg *types.Config) {
	if cmd.Flags().Changed("data") {
		cfg.DataFile, _ = cmd.Flags().GetString("data")
	}
	if cmd.Flags().Changed("analysis-dir") {
		cfg.AnalysisDir, _ = cmd.Flags().GetString("analysis-dir")
	}
	if cmd.Flags().Changed("counts-file") {
		cfg.Evidence.CountsFile, _ = cmd.Flags().GetString("counts-file")
	}
	if cmd.Flags().Changed("cache") {
		cfg.Evidence.CachePath, _ = cmd.Flags().GetString("cache")
	}
	if cmd.Flags().Changed("allowlist") {
		cfg.Scoring.AllowlistFile, _ = cmd.Flags().GetString("allowlist")
	}
	if cmd.Flags().Changed("lookup-timeout") {
		d, _ := cmd.Flags().GetDuration("lookup-timeout")
		cfg.Evidence.LookupTimeout = d
	}
}

// addCommonFlags registers the flags applyCommonFlags reads.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("data", "", "JSON records file (overrides config)")
	cmd.Flags().String("analysis-dir", "", "artifact output directory (overrides config)")
	cmd.Flags().String("counts-file", "", "curated evidence counts YAML (overrides config)")
	cmd.Flags().String("cache", "", "evidence cache path (overrides config)")
	cmd.Flags().String("allowlist", "", "official/expected tag allow-list YAML (overrides config)")
	cmd.Flags().Duration("lookup-timeout", 10*time.Second, "per-lookup timeout (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
