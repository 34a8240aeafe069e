// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// Artifact file names under the analysis directory.
const (
	freqArtifact  = "frequency_stats.json"
	rulesArtifact = "rules.json"
	sigArtifact   = "significance.json"
	scoreArtifact = "score_rankings.json"
	manifestFile  = "manifest.yaml"
)

// FrequencyStats is the persisted output of the counting stage:
// per-tag counts plus every observed co-occurring pair.
type FrequencyStats struct {
	TotalRecords   int            `json:"total_records"`
	SkippedRecords int            `json:"skipped_records"`
	DistinctTags   int            `json:"distinct_tags"`
	TagCounts      map[string]int `json:"tag_counts"`
	PairCounts     []PairCount    `json:"pair_counts"`
}

// PairCount is one observed 2-itemset with its record count.
type PairCount struct {
	Tags  [2]string `json:"tags"`
	Count int       `json:"count"`
}

// writeJSON persists v as indented JSON via a temp file renamed into
// place, so a crashed run never leaves a truncated artifact.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// readJSON loads an artifact into v.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// manifest records a fingerprint per completed stage so re-runs with
// unchanged input and thresholds skip recomputation.
type manifest map[string]string

// loadManifest reads the manifest, returning an empty one when the
// file does not exist or cannot be parsed (every stage then recomputes).
func loadManifest(dir string) manifest {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return manifest{}
	}
	m := manifest{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return manifest{}
	}
	return m
}

// save persists the manifest.
func (m manifest) save(dir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644)
}

// fingerprint hashes the parts that determine a stage's output: the
// input file identity plus the stage-relevant config values. Any
// change invalidates the stage.
func fingerprint(parts ...any) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%v|", p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// dataFingerprint identifies the input dataset by path, size, and
// modification time.
func dataFingerprint(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return fingerprint("missing", path)
	}
	return fingerprint(path, info.Size(), info.ModTime().UTC().Format("2006-01-02T15:04:05.999999999Z07:00"))
}
