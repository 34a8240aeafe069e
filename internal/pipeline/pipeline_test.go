// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/symptom-engine/internal/evidence"
	"github.com/pdiddy/symptom-engine/pkg/types"
)

// testConfig roots every path in a temp dir and relaxes the support
// threshold so the small fixture dataset produces rules.
func testConfig(t *testing.T) types.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := types.DefaultConfig()
	cfg.DataFile = filepath.Join(dir, "records.json")
	cfg.AnalysisDir = filepath.Join(dir, "analysis")
	cfg.Evidence.CachePath = filepath.Join(dir, "evidence.db")
	cfg.Evidence.CountsFile = filepath.Join(dir, "counts.yaml")
	cfg.Evidence.MinLookupInterval = 0
	cfg.Scoring.AllowlistFile = filepath.Join(dir, "allowlist.yaml")
	cfg.Miner.MinSupportFraction = 0.3
	return cfg
}

// writeFixtures writes the dataset and curated counts file: 10 records
// with fatigue and pain together in 4, fatigue alone in 2, pain alone
// in 1, and 3 records carrying an unrelated tag each.
func writeFixtures(t *testing.T, cfg types.Config) {
	t.Helper()

	records := []types.Record{
		{ID: "r1", Tags: []string{"fatigue", "pain"}},
		{ID: "r2", Tags: []string{"fatigue", "pain"}},
		{ID: "r3", Tags: []string{"fatigue", "pain"}},
		{ID: "r4", Tags: []string{"fatigue", "pain"}},
		{ID: "r5", Tags: []string{"fatigue"}},
		{ID: "r6", Tags: []string{"fatigue"}},
		{ID: "r7", Tags: []string{"pain"}},
	}
	for i := 8; i <= 10; i++ {
		records = append(records, types.Record{
			ID: fmt.Sprintf("r%d", i), Tags: []string{fmt.Sprintf("other%d", i)},
		})
	}

	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.DataFile, data, 0o644))
	require.NoError(t, os.WriteFile(cfg.Evidence.CountsFile, []byte("fatigue: 12\npain: 0\n"), 0o644))
}

func newTestRunner(t *testing.T, cfg types.Config, w *bytes.Buffer) *Runner {
	t.Helper()
	lookup, err := evidence.NewFileLookup(cfg.Evidence.CountsFile)
	require.NoError(t, err)
	runner, err := New(cfg, lookup, w)
	require.NoError(t, err)
	return runner
}

func TestRunnerFullRun(t *testing.T) {
	cfg := testConfig(t)
	writeFixtures(t, cfg)

	var w bytes.Buffer
	summary, err := newTestRunner(t, cfg, &w).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, summary.RecordsLoaded)
	assert.Equal(t, 0, summary.RecordsSkipped)
	assert.Equal(t, 5, summary.DistinctTags)
	assert.Equal(t, 1, summary.FrequentPairs)
	assert.Equal(t, 2, summary.Rules)
	assert.Equal(t, 1, summary.SignificantTags, "only fatigue survives the corrected alpha")
	assert.Equal(t, 5, summary.LookupsResolved)
	assert.Equal(t, 5, summary.TagsScored)
	assert.Empty(t, summary.StagesSkipped)

	for _, name := range []string{freqArtifact, rulesArtifact, sigArtifact, scoreArtifact, manifestFile} {
		_, err := os.Stat(filepath.Join(cfg.AnalysisDir, name))
		assert.NoError(t, err, "artifact %s should exist", name)
	}

	// Zero independent hits at high frequency make pain the most
	// surprising tag.
	var ranked []types.ScoreRecord
	require.NoError(t, readJSON(filepath.Join(cfg.AnalysisDir, scoreArtifact), &ranked))
	require.Len(t, ranked, 5)
	assert.Equal(t, "pain", ranked[0].Tag)
	assert.Equal(t, 0.0, ranked[0].Coverage)
}

func TestRunnerSkipsUnchangedStages(t *testing.T) {
	cfg := testConfig(t)
	writeFixtures(t, cfg)

	var w bytes.Buffer
	_, err := newTestRunner(t, cfg, &w).Run(context.Background())
	require.NoError(t, err)

	summary, err := newTestRunner(t, cfg, &w).Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{StageCount, StageMine, StageSignificance}, summary.StagesSkipped)
	assert.Equal(t, 0, summary.LookupsResolved, "second run is served from the evidence cache")
	assert.Equal(t, 5, summary.LookupsCached)
	assert.Equal(t, 5, summary.TagsScored)
}

func TestRunnerRecomputesIdentically(t *testing.T) {
	cfg := testConfig(t)
	writeFixtures(t, cfg)
	ctx := context.Background()

	var w bytes.Buffer
	_, err := newTestRunner(t, cfg, &w).Run(ctx)
	require.NoError(t, err)

	rulesPath := filepath.Join(cfg.AnalysisDir, rulesArtifact)
	scorePath := filepath.Join(cfg.AnalysisDir, scoreArtifact)
	firstRules, err := os.ReadFile(rulesPath)
	require.NoError(t, err)
	firstScores, err := os.ReadFile(scorePath)
	require.NoError(t, err)

	// Dropping the manifest forces every stage to recompute from the
	// same input; the artifacts must come out byte-identical.
	require.NoError(t, os.Remove(filepath.Join(cfg.AnalysisDir, manifestFile)))
	_, err = newTestRunner(t, cfg, &w).Run(ctx)
	require.NoError(t, err)

	secondRules, err := os.ReadFile(rulesPath)
	require.NoError(t, err)
	secondScores, err := os.ReadFile(scorePath)
	require.NoError(t, err)
	assert.Equal(t, firstRules, secondRules)
	assert.Equal(t, firstScores, secondScores)
}

func TestRunnerThresholdChangeInvalidatesMine(t *testing.T) {
	cfg := testConfig(t)
	writeFixtures(t, cfg)
	ctx := context.Background()

	var w bytes.Buffer
	_, err := newTestRunner(t, cfg, &w).Run(ctx)
	require.NoError(t, err)

	cfg.Miner.MinConfidence = 0.7
	summary, err := newTestRunner(t, cfg, &w).Run(ctx)
	require.NoError(t, err)

	assert.Contains(t, summary.StagesSkipped, StageCount)
	assert.NotContains(t, summary.StagesSkipped, StageMine)
	assert.Equal(t, 1, summary.Rules, "fatigue→pain at 0.67 confidence no longer qualifies")
}

func TestRunnerDatasetChangeRecomputes(t *testing.T) {
	cfg := testConfig(t)
	writeFixtures(t, cfg)
	ctx := context.Background()

	var w bytes.Buffer
	_, err := newTestRunner(t, cfg, &w).Run(ctx)
	require.NoError(t, err)

	var records []types.Record
	data, err := os.ReadFile(cfg.DataFile)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &records))
	records = append(records, types.Record{ID: "r11", Tags: []string{"fatigue"}})
	data, err = json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.DataFile, data, 0o644))

	summary, err := newTestRunner(t, cfg, &w).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, summary.StagesSkipped)
	assert.Equal(t, 11, summary.RecordsLoaded)
}

func TestRunnerAllowListAppliesTierOne(t *testing.T) {
	cfg := testConfig(t)
	writeFixtures(t, cfg)
	require.NoError(t, os.WriteFile(cfg.Scoring.AllowlistFile, []byte("- pain\n"), 0o644))

	var w bytes.Buffer
	summary, err := newTestRunner(t, cfg, &w).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, summary.TagsScored)

	var ranked []types.ScoreRecord
	require.NoError(t, readJSON(filepath.Join(cfg.AnalysisDir, scoreArtifact), &ranked))
	for _, r := range ranked {
		if r.Tag == "pain" {
			assert.Equal(t, types.TierExpected, r.Tier)
		}
	}
}

func TestRunnerMissingDataFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Evidence.CountsFile, []byte("fatigue: 1\n"), 0o644))

	var w bytes.Buffer
	_, err := newTestRunner(t, cfg, &w).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage count")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Miner.MinSupportFraction = 0

	_, err := New(cfg, nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}
