// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/symptom-engine/internal/dataset"
	"github.com/pdiddy/symptom-engine/internal/freq"
	"github.com/pdiddy/symptom-engine/internal/mine"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine directional association rules from tag co-occurrence",
	Long: `Mine finds frequent tag pairs (Apriori: candidates are restricted to
pairs of frequent single tags) and derives both directional rules per
pair, keeping those that clear the support, confidence, and lift
thresholds. Output is sorted by confidence, then lift, then tag.`,
	RunE: runMine,
}

func runMine(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	applyCommonFlags(cmd, &cfg)
	if cmd.Flags().Changed("min-support") {
		cfg.Miner.MinSupportFraction, _ = cmd.Flags().GetFloat64("min-support")
	}
	if cmd.Flags().Changed("min-confidence") {
		cfg.Miner.MinConfidence, _ = cmd.Flags().GetFloat64("min-confidence")
	}
	if cmd.Flags().Changed("min-lift") {
		cfg.Miner.MinLift, _ = cmd.Flags().GetFloat64("min-lift")
	}

	records, _, err := dataset.Load(cfg.DataFile, os.Stderr)
	if err != nil {
		return err
	}

	result, err := mine.Mine(freq.Count(records), cfg.Miner, os.Stderr)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Rules)
	}

	if len(result.Rules) == 0 {
		fmt.Println("No rules cleared the thresholds.")
		return nil
	}

	fmt.Printf("%-25s  %-25s  %-8s  %-10s  %s\n",
		"Antecedent", "Consequent", "Support", "Confidence", "Lift")
	fmt.Println(strings.Repeat("-", 80))
	for _, r := range result.Rules {
		fmt.Printf("%-25s  %-25s  %-8.3f  %-10.3f  %.3f\n",
			r.Antecedent, r.Consequent, r.Support, r.Confidence, r.Lift)
	}
	fmt.Printf("\n%d rules from %d frequent pairs (min support count %d)\n",
		len(result.Rules), len(result.FrequentPairs), result.MinSupportCount)
	return nil
}

func init() {
	addCommonFlags(mineCmd)
	mineCmd.Flags().Float64("min-support", 0.02, "minimum support fraction (overrides config)")
	mineCmd.Flags().Float64("min-confidence", 0.4, "minimum rule confidence (overrides config)")
	mineCmd.Flags().Float64("min-lift", 1.2, "minimum rule lift (overrides config)")
	mineCmd.Flags().Bool("json", false, "output rules as JSON")
	rootCmd.AddCommand(mineCmd)
}
