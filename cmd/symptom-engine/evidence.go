// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/symptom-engine/internal/dataset"
	"github.com/pdiddy/symptom-engine/internal/evidence"
	"github.com/pdiddy/symptom-engine/internal/freq"
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Cross-reference tags against independent literature counts",
	Long: `Evidence resolves an independent literature count for every observed
tag through the configured lookup, caching results in SQLite so a tag
is never queried twice. Lookups that fail after all retries are stored
with an unknown count, distinct from a real zero.`,
	RunE: runEvidence,
}

func runEvidence(cmd *cobra.Command, args []string) error {
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

	tags := make([]string, 0, len(resolved))
	for tag := range resolved {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		out := make([]any, 0, len(tags))
		for _, tag := range tags {
			out = append(out, resolved[tag])
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("%-40s  %s\n", "Tag", "Independent count")
	fmt.Println(strings.Repeat("-", 60))
	for _, tag := range tags {
		rec := resolved[tag]
		if rec.Known() {
			fmt.Printf("%-40s  %d\n", tag, *rec.IndependentCount)
		} else {
			fmt.Printf("%-40s  unknown\n", tag)
		}
	}
	return nil
}

func init() {
	addCommonFlags(evidenceCmd)
	evidenceCmd.Flags().Bool("json", false, "output evidence records as JSON")
	rootCmd.AddCommand(evidenceCmd)
}
