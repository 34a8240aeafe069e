// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score ranks tags by a surprise score combining report
// frequency with inverse independent-evidence coverage, and groups
// them into evidence tiers.
package score

import (
	"fmt"
	"io"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/symptom-engine/pkg/types"
)

// Input is the immutable snapshot of prior-stage output the scorer
// reads.
type Input struct {
	// TagCounts is the 1-itemset count per tag.
	TagCounts map[string]int

	// TotalRecords is the number of records with at least one tag.
	TotalRecords int

	// Evidence holds one record per tag from the cross-referencer.
	Evidence map[string]types.EvidenceRecord

	// Significant flags tags that passed the corrected binomial test.
	Significant map[string]bool

	// AllowList holds tags pre-listed as official/expected attributes.
	AllowList map[string]bool
}

// Diagnostics holds recoverable-problem counters from a scoring run.
type Diagnostics struct {
	SkippedTags int
}

// Rank computes one ScoreRecord per tag, sorted by surprise descending
// (ties broken by tag so identical input yields identical output).
// With zero total records nothing can be scored: every tag is skipped
// with a diagnostic instead of dividing by zero.
func Rank(in Input, cfg types.ScoringConfig, w io.Writer) ([]types.ScoreRecord, Diagnostics) {
	var diag Diagnostics
	if in.TotalRecords <= 0 {
		diag.SkippedTags = len(in.TagCounts)
		if diag.SkippedTags > 0 {
			fmt.Fprintf(w, "no records with tags: skipped scoring %d tags\n", diag.SkippedTags)
		}
		return nil, diag
	}

	records := make([]types.ScoreRecord, 0, len(in.TagCounts))
	for tag, count := range in.TagCounts {
		frequency := float64(count) / float64(in.TotalRecords)
		ev := in.Evidence[tag]
		coverage := Coverage(ev.IndependentCount, cfg.CoverageSaturation)
		surprise := frequency * (1 - coverage)

		records = append(records, types.ScoreRecord{
			Tag:         tag,
			Count:       count,
			Frequency:   frequency,
			Coverage:    coverage,
			Surprise:    surprise,
			Label:       Label(surprise, cfg),
			Tier:        Classify(tag, frequency, ev.IndependentCount, in.AllowList, cfg),
			Significant: in.Significant[tag],
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Surprise != records[j].Surprise {
			return records[i].Surprise > records[j].Surprise
		}
		return records[i].Tag < records[j].Tag
	})
	return records, diag
}

// Coverage normalizes an independent count into [0,1], saturating at
// the configured constant. An unknown count yields zero coverage:
// evidence we could not fetch is never assumed to be "well studied".
func Coverage(independentCount *int64, saturation int64) float64 {
	if independentCount == nil {
		return 0
	}
	c := float64(*independentCount) / float64(saturation)
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}

// Label classifies a surprise score against the configured boundaries.
func Label(surprise float64, cfg types.ScoringConfig) string {
	switch {
	case surprise >= cfg.SurpriseHigh:
		return types.SurpriseHigh
	case surprise >= cfg.SurpriseModerate:
		return types.SurpriseModerate
	default:
		return types.SurpriseExpected
	}
}

// Classify assigns the evidence tier in strict priority order: a tag
// qualifying for several tiers always gets the lowest-numbered one.
func Classify(tag string, frequency float64, independentCount *int64, allowList map[string]bool, cfg types.ScoringConfig) types.Tier {
	if allowList[tag] {
		return types.TierExpected
	}
	if independentCount != nil && *independentCount >= cfg.Tier2MinCount {
		return types.TierDocumented
	}
	if frequency >= cfg.Tier3MinFrequency && (independentCount == nil || *independentCount < cfg.Tier2MinCount) {
		return types.TierFrequentUnstudied
	}
	return types.TierEmerging
}

// LoadAllowList reads a YAML list of pre-listed tags. A missing file
// is an empty allow-list, not an error; the input is optional.
func LoadAllowList(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("reading allow-list %s: %w", path, err)
	}

	var tags []string
	if err := yaml.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("parsing allow-list %s: %w", path, err)
	}

	out := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t != "" {
			out[t] = true
		}
	}
	return out, nil
}
