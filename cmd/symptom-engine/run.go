// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/symptom-engine/internal/evidence"
	"github.com/pdiddy/symptom-engine/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full analysis pipeline and persist artifacts",
	Long: `Run executes count, mine, significance, evidence, and score in order,
writing frequency_stats.json, rules.json, significance.json, and
score_rankings.json to the analysis directory. Stages whose input and
thresholds are unchanged since the last run are skipped. The run
summary always reports skipped records and failed lookups alongside
the output.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	applyCommonFlags(cmd, &cfg)

	lookup, err := evidence.NewFileLookup(cfg.Evidence.CountsFile)
	if err != nil {
		return err
	}

	runner, err := pipeline.New(cfg, lookup, os.Stdout)
	if err != nil {
		return err
	}

	_, err = runner.Run(context.Background())
	return err
}

func init() {
	addCommonFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
