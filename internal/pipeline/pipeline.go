// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the analysis stages and persists each
// stage's output as an addressable artifact.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdiddy/symptom-engine/internal/dataset"
	"github.com/pdiddy/symptom-engine/internal/evidence"
	"github.com/pdiddy/symptom-engine/internal/freq"
	"github.com/pdiddy/symptom-engine/internal/mine"
	"github.com/pdiddy/symptom-engine/internal/score"
	"github.com/pdiddy/symptom-engine/internal/stats"
	"github.com/pdiddy/symptom-engine/pkg/types"
)

// Stage names used in skip reporting and error wrapping.
const (
	StageCount        = "count"
	StageMine         = "mine"
	StageSignificance = "significance"
	StageEvidence     = "evidence"
	StageScore        = "score"
)

// RunSummary reports what a run produced and what it had to skip.
// Partial results are never presented as complete: the skip and
// failure counters always accompany the output.
type RunSummary struct {
	RecordsLoaded   int
	RecordsSkipped  int
	DistinctTags    int
	FrequentPairs   int
	Rules           int
	RulesSkipped    int
	SignificantTags int
	LookupsResolved int
	LookupsCached   int
	LookupsFailed   int
	TagsScored      int
	TagsSkipped     int
	StagesSkipped   []string
}

// Print writes the run summary to w.
func (s *RunSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "\nRun summary:\n")
	fmt.Fprintf(w, "  records:  %d loaded, %d skipped\n", s.RecordsLoaded, s.RecordsSkipped)
	fmt.Fprintf(w, "  tags:     %d distinct, %d significant\n", s.DistinctTags, s.SignificantTags)
	fmt.Fprintf(w, "  rules:    %d kept (%d frequent pairs, %d skipped)\n", s.Rules, s.FrequentPairs, s.RulesSkipped)
	fmt.Fprintf(w, "  evidence: %d resolved, %d cached, %d failed lookups\n", s.LookupsResolved, s.LookupsCached, s.LookupsFailed)
	fmt.Fprintf(w, "  scores:   %d ranked, %d skipped\n", s.TagsScored, s.TagsSkipped)
	if len(s.StagesSkipped) > 0 {
		fmt.Fprintf(w, "  stages skipped (unchanged): %v\n", s.StagesSkipped)
	}
}

// Runner executes the pipeline under one validated configuration.
type Runner struct {
	cfg    types.Config
	lookup evidence.Lookup
	w      io.Writer
}

// New validates cfg and returns a Runner. Validation failures are
// fatal configuration errors; nothing has run yet.
func New(cfg types.Config, lookup evidence.Lookup, w io.Writer) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, lookup: lookup, w: w}, nil
}

// Run executes count → mine → significance → evidence → score,
// persisting each stage's artifact before moving on. Stages whose
// input and thresholds are unchanged since the last run are skipped
// and their artifacts reloaded. A fatal stage error aborts the run;
// artifacts already written stay on disk and the failing stage is
// named in the error.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	if err := os.MkdirAll(r.cfg.AnalysisDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating analysis directory: %w", err)
	}

	summary := &RunSummary{}
	man := loadManifest(r.cfg.AnalysisDir)
	dataFP := dataFingerprint(r.cfg.DataFile)

	frequency, err := r.runCount(summary, man, dataFP)
	if err != nil {
		return summary, fmt.Errorf("stage %s: %w", StageCount, err)
	}
	summary.RecordsLoaded = frequency.TotalRecords
	summary.RecordsSkipped = frequency.SkippedRecords
	summary.DistinctTags = frequency.DistinctTags

	rules, err := r.runMine(summary, man, dataFP, frequency)
	if err != nil {
		return summary, fmt.Errorf("stage %s: %w", StageMine, err)
	}
	summary.Rules = len(rules)

	sig, err := r.runSignificance(summary, man, dataFP, frequency)
	if err != nil {
		return summary, fmt.Errorf("stage %s: %w", StageSignificance, err)
	}
	for _, res := range sig {
		if res.Significant {
			summary.SignificantTags++
		}
	}

	records, err := r.runEvidence(ctx, summary, frequency)
	if err != nil {
		return summary, fmt.Errorf("stage %s: %w", StageEvidence, err)
	}

	if err := r.runScore(summary, frequency, sig, records); err != nil {
		return summary, fmt.Errorf("stage %s: %w", StageScore, err)
	}

	summary.Print(r.w)
	return summary, nil
}

// runCount loads the dataset and builds frequency_stats.json, or
// reloads it when the dataset is unchanged.
func (r *Runner) runCount(summary *RunSummary, man manifest, dataFP string) (*FrequencyStats, error) {
	path := filepath.Join(r.cfg.AnalysisDir, freqArtifact)
	fp := fingerprint(dataFP)

	if man[StageCount] == fp {
		var cached FrequencyStats
		if err := readJSON(path, &cached); err == nil {
			fmt.Fprintf(r.w, "count: unchanged, using %s\n", freqArtifact)
			summary.StagesSkipped = append(summary.StagesSkipped, StageCount)
			return &cached, nil
		}
	}

	records, loadSummary, err := dataset.Load(r.cfg.DataFile, r.w)
	if err != nil {
		return nil, err
	}

	counts := freq.Count(records)
	frequency := &FrequencyStats{
		TotalRecords:   counts.Records,
		SkippedRecords: loadSummary.Skipped + counts.Skipped,
		DistinctTags:   counts.DistinctTags(),
		TagCounts:      counts.TagCounts(),
		PairCounts:     pairCounts(counts),
	}

	if err := writeJSON(path, frequency); err != nil {
		return nil, err
	}
	man[StageCount] = fp
	if err := man.save(r.cfg.AnalysisDir); err != nil {
		return nil, err
	}
	fmt.Fprintf(r.w, "count: %d records, %d distinct tags, %d pairs\n",
		frequency.TotalRecords, frequency.DistinctTags, len(frequency.PairCounts))
	return frequency, nil
}

// runMine derives rules.json from the frequency stats, or reloads it
// when the dataset and mining thresholds are unchanged.
func (r *Runner) runMine(summary *RunSummary, man manifest, dataFP string, frequency *FrequencyStats) ([]types.Rule, error) {
	path := filepath.Join(r.cfg.AnalysisDir, rulesArtifact)
	fp := fingerprint(dataFP, r.cfg.Miner)

	if man[StageMine] == fp {
		var cached []types.Rule
		if err := readJSON(path, &cached); err == nil {
			fmt.Fprintf(r.w, "mine: unchanged, using %s\n", rulesArtifact)
			summary.StagesSkipped = append(summary.StagesSkipped, StageMine)
			return cached, nil
		}
	}

	result, err := mine.Mine(rebuildCounts(frequency), r.cfg.Miner, r.w)
	if err != nil {
		return nil, err
	}
	summary.FrequentPairs = len(result.FrequentPairs)
	summary.RulesSkipped = result.Diagnostics.SkippedRules

	rules := result.Rules
	if rules == nil {
		rules = []types.Rule{}
	}
	if err := writeJSON(path, rules); err != nil {
		return nil, err
	}
	man[StageMine] = fp
	if err := man.save(r.cfg.AnalysisDir); err != nil {
		return nil, err
	}
	fmt.Fprintf(r.w, "mine: %d frequent pairs, %d rules (min support count %d)\n",
		len(result.FrequentPairs), len(rules), result.MinSupportCount)
	return rules, nil
}

// runSignificance builds significance.json, or reloads it when the
// dataset and alpha are unchanged.
func (r *Runner) runSignificance(summary *RunSummary, man manifest, dataFP string, frequency *FrequencyStats) ([]stats.Result, error) {
	path := filepath.Join(r.cfg.AnalysisDir, sigArtifact)
	fp := fingerprint(dataFP, r.cfg.Significance)

	if man[StageSignificance] == fp {
		var cached []stats.Result
		if err := readJSON(path, &cached); err == nil {
			fmt.Fprintf(r.w, "significance: unchanged, using %s\n", sigArtifact)
			summary.StagesSkipped = append(summary.StagesSkipped, StageSignificance)
			return cached, nil
		}
	}

	results := stats.TestTagFrequencies(frequency.TagCounts, frequency.TotalRecords, r.cfg.Significance.Alpha)
	if results == nil {
		results = []stats.Result{}
	}
	if err := writeJSON(path, results); err != nil {
		return nil, err
	}
	man[StageSignificance] = fp
	if err := man.save(r.cfg.AnalysisDir); err != nil {
		return nil, err
	}

	significant := 0
	for _, res := range results {
		if res.Significant {
			significant++
		}
	}
	fmt.Fprintf(r.w, "significance: %d of %d tags significant (alpha %v, Bonferroni)\n",
		significant, len(results), r.cfg.Significance.Alpha)
	return results, nil
}

// runEvidence cross-references every observed tag. The SQLite cache,
// not the manifest, makes this stage incremental: tags resolved in a
// previous run are served from the cache.
func (r *Runner) runEvidence(ctx context.Context, summary *RunSummary, frequency *FrequencyStats) (map[string]types.EvidenceRecord, error) {
	cache, err := evidence.OpenCache(r.cfg.Evidence.CachePath)
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	tags := make([]string, 0, len(frequency.TagCounts))
	for tag := range frequency.TagCounts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	xref := evidence.NewCrossReferencer(r.lookup, cache, r.cfg.Evidence)
	records, evSummary, err := xref.Resolve(ctx, tags, r.w)
	if err != nil {
		return nil, err
	}
	summary.LookupsResolved = evSummary.Resolved
	summary.LookupsCached = evSummary.Cached
	summary.LookupsFailed = evSummary.Failed
	return records, nil
}

// runScore writes score_rankings.json. Scoring is pure arithmetic
// over the other stages' output and always recomputes.
func (r *Runner) runScore(summary *RunSummary, frequency *FrequencyStats, sig []stats.Result, records map[string]types.EvidenceRecord) error {
	allowList, err := score.LoadAllowList(r.cfg.Scoring.AllowlistFile)
	if err != nil {
		return err
	}

	significant := make(map[string]bool, len(sig))
	for _, res := range sig {
		significant[res.Tag] = res.Significant
	}

	ranked, diag := score.Rank(score.Input{
		TagCounts:    frequency.TagCounts,
		TotalRecords: frequency.TotalRecords,
		Evidence:     records,
		Significant:  significant,
		AllowList:    allowList,
	}, r.cfg.Scoring, r.w)
	summary.TagsScored = len(ranked)
	summary.TagsSkipped = diag.SkippedTags

	if ranked == nil {
		ranked = []types.ScoreRecord{}
	}
	if err := writeJSON(filepath.Join(r.cfg.AnalysisDir, scoreArtifact), ranked); err != nil {
		return err
	}
	fmt.Fprintf(r.w, "score: %d tags ranked\n", len(ranked))
	return nil
}

// pairCounts flattens the sparse pair map into a sorted artifact form.
func pairCounts(counts *freq.Counts) []PairCount {
	out := make([]PairCount, 0, len(counts.Pairs))
	for p, n := range counts.Pairs {
		out = append(out, PairCount{
			Tags:  [2]string{counts.Arena.Name(p.A), counts.Arena.Name(p.B)},
			Count: n,
		})
	}
	for i := range out {
		if out[i].Tags[0] > out[i].Tags[1] {
			out[i].Tags[0], out[i].Tags[1] = out[i].Tags[1], out[i].Tags[0]
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tags[0] != out[j].Tags[0] {
			return out[i].Tags[0] < out[j].Tags[0]
		}
		return out[i].Tags[1] < out[j].Tags[1]
	})
	return out
}

// rebuildCounts reconstructs the in-memory counts from a persisted
// FrequencyStats so the miner runs identically whether the counting
// stage executed or was skipped.
func rebuildCounts(frequency *FrequencyStats) *freq.Counts {
	c := &freq.Counts{
		Arena:   freq.NewArena(),
		Singles: make(map[int]int, len(frequency.TagCounts)),
		Pairs:   make(map[freq.Pair]int, len(frequency.PairCounts)),
		Records: frequency.TotalRecords,
		Skipped: frequency.SkippedRecords,
	}

	tags := make([]string, 0, len(frequency.TagCounts))
	for tag := range frequency.TagCounts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		c.Singles[c.Arena.Intern(tag)] = frequency.TagCounts[tag]
	}
	for _, pc := range frequency.PairCounts {
		c.Pairs[freq.MakePair(c.Arena.Intern(pc.Tags[0]), c.Arena.Intern(pc.Tags[1]))] = pc.Count
	}
	return c
}
