// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stats

import "sort"

// TagP pairs a tag with its raw one-sided p-value.
type TagP struct {
	Tag   string
	Count int
	RawP  float64
}

// Result is the per-tag outcome after multiple-testing correction.
type Result struct {
	Tag           string  `json:"tag"`
	Count         int     `json:"count"`
	RawP          float64 `json:"raw_p"`
	AdjustedAlpha float64 `json:"adjusted_alpha"`
	Significant   bool    `json:"significant"`
}

// TestTagFrequencies runs a one-sided binomial test for every tag
// against the uniform null p0 = 1/distinctTags ("every tag equally
// likely") with n = totalRecords, then applies Bonferroni correction
// at level alpha. Results are sorted by tag.
func TestTagFrequencies(tagCounts map[string]int, totalRecords int, alpha float64) []Result {
	if len(tagCounts) == 0 || totalRecords <= 0 {
		return nil
	}

	p0 := 1.0 / float64(len(tagCounts))
	ps := make([]TagP, 0, len(tagCounts))
	for tag, count := range tagCounts {
		ps = append(ps, TagP{
			Tag:   tag,
			Count: count,
			RawP:  BinomialTailP(count, totalRecords, p0),
		})
	}
	return ApplyBonferroni(ps, alpha)
}

// ApplyBonferroni maps raw p-values to corrected significance flags:
// a tag is significant iff its raw p-value is below alpha divided by
// the number of tags tested. The correction is deliberately
// conservative — with many tags tested it carries a high
// false-negative rate, which is the intended property for flagging
// only the strongest frequency outliers. Pure function: the input
// slice is not modified and no state is shared between calls.
func ApplyBonferroni(ps []TagP, alpha float64) []Result {
	if len(ps) == 0 {
		return nil
	}

	adjusted := alpha / float64(len(ps))
	results := make([]Result, 0, len(ps))
	for _, p := range ps {
		results = append(results, Result{
			Tag:           p.Tag,
			Count:         p.Count,
			RawP:          p.RawP,
			AdjustedAlpha: adjusted,
			Significant:   p.RawP < adjusted,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Tag < results[j].Tag
	})
	return results
}
