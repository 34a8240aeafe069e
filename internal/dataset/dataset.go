// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset loads tagged patient-report records for analysis.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pdiddy/symptom-engine/pkg/types"
)

// LoadSummary holds counts from a dataset load.
type LoadSummary struct {
	Loaded  int
	Skipped int
}

// Total returns the number of input records processed.
func (s LoadSummary) Total() int {
	return s.Loaded + s.Skipped
}

// Load reads a JSON array of records from path. Tags are deduplicated
// and sorted per record; records with no tags are skipped and counted,
// never an error. Records are read-only after this point.
func Load(path string, w io.Writer) ([]types.Record, LoadSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadSummary{}, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, w)
}

// Decode reads a JSON array of records from r, applying the same
// normalization and skip rules as Load.
func Decode(r io.Reader, w io.Writer) ([]types.Record, LoadSummary, error) {
	var raw []types.Record
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, LoadSummary{}, fmt.Errorf("parsing dataset: %w", err)
	}

	var records []types.Record
	var summary LoadSummary
	for _, rec := range raw {
		tags := normalizeTags(rec.Tags)
		if len(tags) == 0 {
			fmt.Fprintf(w, "skipped %s: no tags\n", rec.ID)
			summary.Skipped++
			continue
		}
		records = append(records, types.Record{ID: rec.ID, Tags: tags})
		summary.Loaded++
	}
	return records, summary, nil
}

// normalizeTags deduplicates and sorts a record's tags, dropping
// blank entries.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
