// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// FileLookup serves independent counts from a curated tag → count YAML
// file, for offline runs and pre-fetched literature snapshots. A tag
// absent from the file resolves to zero: the snapshot is taken to be
// complete, so absence means genuinely unstudied, not unknown.
type FileLookup struct {
	path   string
	counts map[string]int64
}

// NewFileLookup loads the counts file at path.
func NewFileLookup(path string) (*FileLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading counts file %s: %w", path, err)
	}
	counts := make(map[string]int64)
	if err := yaml.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("parsing counts file %s: %w", path, err)
	}
	return &FileLookup{path: path, counts: counts}, nil
}

// Name identifies the lookup for diagnostics.
func (f *FileLookup) Name() string {
	return "curated:" + f.path
}

// Lookup returns the curated count for tag.
func (f *FileLookup) Lookup(_ context.Context, tag string) (int64, error) {
	return f.counts[tag], nil
}
