// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EvidenceRecord is the cached result of one independent-literature
// lookup. IndependentCount is nil when the lookup failed after all
// retries: zero is a real, meaningful count and must never stand in
// for "unknown".
type EvidenceRecord struct {
	Tag              string    `json:"tag" yaml:"tag"`
	IndependentCount *int64    `json:"independent_count" yaml:"independent_count"`
	QueryTimestamp   time.Time `json:"query_timestamp" yaml:"query_timestamp"`
}

// Known reports whether the lookup produced a usable count.
func (e EvidenceRecord) Known() bool {
	return e.IndependentCount != nil
}

// Tier classifies how well-supported a tag is by independent sources.
// Lower numbers take priority when a tag qualifies for several tiers.
type Tier int

const (
	// TierExpected marks tags pre-listed as official/expected attributes.
	TierExpected Tier = 1
	// TierDocumented marks tags with enough independent literature hits.
	TierDocumented Tier = 2
	// TierFrequentUnstudied marks tags reported often but barely studied.
	TierFrequentUnstudied Tier = 3
	// TierEmerging is everything else.
	TierEmerging Tier = 4
)

// Surprise labels, from most to least notable.
const (
	SurpriseHigh     = "high"
	SurpriseModerate = "moderate"
	SurpriseExpected = "expected"
)

// ScoreRecord is the per-tag output of the surprise scorer. It is
// derived purely from 1-itemset counts and evidence records and can be
// recomputed at any time.
type ScoreRecord struct {
	Tag         string  `json:"tag"`
	Count       int     `json:"count"`
	Frequency   float64 `json:"frequency"`
	Coverage    float64 `json:"coverage"`
	Surprise    float64 `json:"surprise"`
	Label       string  `json:"label"`
	Tier        Tier    `json:"tier"`
	Significant bool    `json:"significant"`
}
