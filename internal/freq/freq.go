// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package freq counts single-tag and co-occurring pair frequencies.
package freq

import (
	"sort"

	"github.com/pdiddy/symptom-engine/pkg/types"
)

// Arena interns tag strings to dense integer ids so itemsets can be
// keyed by small sorted tuples instead of string sets.
type Arena struct {
	ids   map[string]int
	names []string
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{ids: make(map[string]int)}
}

// Intern returns the id for tag, assigning the next dense id on first use.
func (a *Arena) Intern(tag string) int {
	if id, ok := a.ids[tag]; ok {
		return id
	}
	id := len(a.names)
	a.ids[tag] = id
	a.names = append(a.names, tag)
	return id
}

// ID returns the id for tag and whether it has been interned.
func (a *Arena) ID(tag string) (int, bool) {
	id, ok := a.ids[tag]
	return id, ok
}

// Name returns the tag string for id.
func (a *Arena) Name(id int) string {
	return a.names[id]
}

// Len returns the number of distinct tags interned.
func (a *Arena) Len() int {
	return len(a.names)
}

// Pair is an unordered tag pair keyed by interned ids with A < B.
type Pair struct {
	A, B int
}

// MakePair returns the canonical Pair for two distinct ids.
func MakePair(x, y int) Pair {
	if x > y {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

// Counts holds the frequencies from one pass over the dataset. It is
// an explicit aggregate threaded through the pipeline, not package
// state, and is treated as immutable once built.
type Counts struct {
	Arena   *Arena
	Singles map[int]int
	Pairs   map[Pair]int

	// Records is the number of records counted (each has at least one tag).
	Records int

	// Skipped is the number of malformed records dropped.
	Skipped int
}

// Count builds single and pair counts from records. Each unordered
// pair of a record's tags is counted exactly once: a record with
// {A,B,C} contributes to {A,B}, {A,C} and {B,C}. Records with no tags
// are skipped and counted, never an error. The pair map is sparse;
// only observed pairs appear.
func Count(records []types.Record) *Counts {
	c := &Counts{
		Arena:   NewArena(),
		Singles: make(map[int]int),
		Pairs:   make(map[Pair]int),
	}

	for _, rec := range records {
		ids := internUnique(c.Arena, rec.Tags)
		if len(ids) == 0 {
			c.Skipped++
			continue
		}
		c.Records++
		for _, id := range ids {
			c.Singles[id]++
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				c.Pairs[MakePair(ids[i], ids[j])]++
			}
		}
	}
	return c
}

// internUnique interns a record's tags, dropping duplicates and blanks,
// and returns the ids sorted ascending.
func internUnique(a *Arena, tags []string) []int {
	seen := make(map[int]bool, len(tags))
	var ids []int
	for _, t := range tags {
		if t == "" {
			continue
		}
		id := a.Intern(t)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// TagCount returns the count for a tag, zero if never seen.
func (c *Counts) TagCount(tag string) int {
	id, ok := c.Arena.ID(tag)
	if !ok {
		return 0
	}
	return c.Singles[id]
}

// PairCount returns the co-occurrence count for two tags, zero if the
// pair was never observed.
func (c *Counts) PairCount(x, y string) int {
	xi, ok := c.Arena.ID(x)
	if !ok {
		return 0
	}
	yi, ok := c.Arena.ID(y)
	if !ok {
		return 0
	}
	return c.Pairs[MakePair(xi, yi)]
}

// DistinctTags returns the number of distinct tags observed.
func (c *Counts) DistinctTags() int {
	return c.Arena.Len()
}

// Tags returns all observed tags sorted ascending.
func (c *Counts) Tags() []string {
	tags := make([]string, c.Arena.Len())
	copy(tags, c.Arena.names)
	sort.Strings(tags)
	return tags
}

// TagCounts returns a tag → count map over all observed tags.
func (c *Counts) TagCounts() map[string]int {
	out := make(map[string]int, len(c.Singles))
	for id, n := range c.Singles {
		out[c.Arena.Name(id)] = n
	}
	return out
}
