// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/symptom-engine/internal/dataset"
	"github.com/pdiddy/symptom-engine/internal/freq"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count single-tag and co-occurring pair frequencies",
	Long: `Count loads the records file, deduplicates each record's tags, and
reports how often every tag and every observed tag pair occurs. Records
with no tags are skipped and counted, never an error.`,
	RunE: runCount,
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	applyCommonFlags(cmd, &cfg)

	records, loadSummary, err := dataset.Load(cfg.DataFile, os.Stderr)
	if err != nil {
		return err
	}
	counts := freq.Count(records)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(counts.TagCounts())
	}

	tagCounts := counts.TagCounts()
	tags := make([]string, 0, len(tagCounts))
	for tag := range tagCounts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tagCounts[tags[i]] != tagCounts[tags[j]] {
			return tagCounts[tags[i]] > tagCounts[tags[j]]
		}
		return tags[i] < tags[j]
	})

	fmt.Printf("%-40s  %s\n", "Tag", "Count")
	fmt.Println(strings.Repeat("-", 48))
	for _, tag := range tags {
		fmt.Printf("%-40s  %d\n", tag, tagCounts[tag])
	}
	fmt.Printf("\n%d records (%d skipped), %d distinct tags, %d observed pairs\n",
		counts.Records, loadSummary.Skipped, counts.DistinctTags(), len(counts.Pairs))
	return nil
}

func init() {
	addCommonFlags(countCmd)
	countCmd.Flags().Bool("json", false, "output tag counts as JSON")
	rootCmd.AddCommand(countCmd)
}
