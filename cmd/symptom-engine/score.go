// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/symptom-engine/internal/dataset"
	"github.com/pdiddy/symptom-engine/internal/evidence"
	"github.com/pdiddy/symptom-engine/internal/freq"
	"github.com/pdiddy/symptom-engine/internal/score"
	"github.com/pdiddy/symptom-engine/internal/stats"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rank tags by surprise score with evidence tiers",
	Long: `Score combines each tag's report frequency, evidence coverage, and
significance into a surprise score and ranks tags descending. Tags
also receive an evidence tier (1 = officially expected through
4 = emerging) assigned in strict priority order.`,
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	applyCommonFlags(cmd, &cfg)

	records, _, err := dataset.Load(cfg.DataFile, os.Stderr)
	if err != nil {
		return err
	}
	counts := freq.Count(records)

	lookup, err := evidence.NewFileLookup(cfg.Evidence.CountsFile)
	if err != nil {
		return err
	}
	cache, err := evidence.OpenCache(cfg.Evidence.CachePath)
	if err != nil {
		return err
	}
	defer cache.Close()

	xref := evidence.NewCrossReferencer(lookup, cache, cfg.Evidence)
	resolved, _, err := xref.Resolve(context.Background(), counts.Tags(), os.Stderr)
	if err != nil {
		return err
	}

	sig := stats.TestTagFrequencies(counts.TagCounts(), counts.Records, cfg.Significance.Alpha)
	significant := make(map[string]bool, len(sig))
	for _, res := range sig {
		significant[res.Tag] = res.Significant
	}

	allowList, err := score.LoadAllowList(cfg.Scoring.AllowlistFile)
	if err != nil {
		return err
	}

	ranked, _ := score.Rank(score.Input{
		TagCounts:    counts.TagCounts(),
		TotalRecords: counts.Records,
		Evidence:     resolved,
		Significant:  significant,
		AllowList:    allowList,
	}, cfg.Scoring, os.Stderr)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}

	if len(ranked) == 0 {
		fmt.Println("Nothing to score.")
		return nil
	}

	fmt.Printf("%-4s  %-30s  %-9s  %-8s  %-9s  %-4s  %s\n",
		"Rank", "Tag", "Frequency", "Surprise", "Label", "Tier", "Significant")
	fmt.Println(strings.Repeat("-", 84))
	for i, r := range ranked {
		fmt.Printf("%-4d  %-30s  %-9.4f  %-8.4f  %-9s  %-4d  %v\n",
			i+1, r.Tag, r.Frequency, r.Surprise, r.Label, r.Tier, r.Significant)
	}
	return nil
}

func init() {
	addCommonFlags(scoreCmd)
	scoreCmd.Flags().Bool("json", false, "output score records as JSON")
	rootCmd.AddCommand(scoreCmd)
}
