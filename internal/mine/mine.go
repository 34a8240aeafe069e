// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mine discovers frequent tag pairs and derives directional
// association rules from them (Apriori, depth 2).
package mine

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/pdiddy/symptom-engine/internal/freq"
	"github.com/pdiddy/symptom-engine/pkg/types"
)

// Diagnostics holds recoverable-problem counters from a mining run.
type Diagnostics struct {
	// InfrequentTags is the number of 1-itemsets pruned for failing
	// the support threshold.
	InfrequentTags int

	// SkippedRules is the number of candidate rules dropped to avoid
	// division by a zero count.
	SkippedRules int
}

// Result holds the output of one mining run.
type Result struct {
	TotalRecords    int
	MinSupportCount int
	FrequentTags    []types.Itemset
	FrequentPairs   []types.Itemset
	Rules           []types.Rule
	Diagnostics     Diagnostics
}

// Mine runs Apriori over the counts: frequent 1-itemsets, candidate
// pairs restricted to frequent singles, then directional rules filtered
// by confidence and lift independently. Configuration is validated once
// here; everything after that is recoverable. Progress diagnostics go
// to w.
//
// Candidate pairs only ever combine frequent 1-itemsets: an infrequent
// tag cannot appear in any frequent superset, so pairs containing one
// are never enumerated.
func Mine(counts *freq.Counts, cfg types.MinerConfig, w io.Writer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Result{TotalRecords: counts.Records}
	if counts.Records == 0 {
		fmt.Fprintln(w, "no records counted: no rules to mine")
		return res, nil
	}

	res.MinSupportCount = int(math.Ceil(cfg.MinSupportFraction * float64(counts.Records)))
	if res.MinSupportCount < 1 {
		res.MinSupportCount = 1
	}

	// Frequent 1-itemsets.
	frequent := make(map[int]int)
	for id, n := range counts.Singles {
		if n >= res.MinSupportCount {
			frequent[id] = n
		} else {
			res.Diagnostics.InfrequentTags++
		}
	}
	for id, n := range frequent {
		res.FrequentTags = append(res.FrequentTags, types.Itemset{
			Tags:  []string{counts.Arena.Name(id)},
			Count: n,
		})
	}
	sort.Slice(res.FrequentTags, func(i, j int) bool {
		return res.FrequentTags[i].Tags[0] < res.FrequentTags[j].Tags[0]
	})

	// Frequent pairs: the sparse pair map already restricts candidates
	// to observed co-occurrences; Apriori pruning further requires both
	// members to be frequent singles.
	type pairCount struct {
		pair  freq.Pair
		count int
	}
	var pairs []pairCount
	for p, n := range counts.Pairs {
		if n < res.MinSupportCount {
			continue
		}
		if _, ok := frequent[p.A]; !ok {
			continue
		}
		if _, ok := frequent[p.B]; !ok {
			continue
		}
		pairs = append(pairs, pairCount{pair: p, count: n})
	}

	for _, pc := range pairs {
		a, b := counts.Arena.Name(pc.pair.A), counts.Arena.Name(pc.pair.B)
		tags := []string{a, b}
		sort.Strings(tags)
		res.FrequentPairs = append(res.FrequentPairs, types.Itemset{Tags: tags, Count: pc.count})
	}
	sort.Slice(res.FrequentPairs, func(i, j int) bool {
		pi, pj := res.FrequentPairs[i], res.FrequentPairs[j]
		if pi.Tags[0] != pj.Tags[0] {
			return pi.Tags[0] < pj.Tags[0]
		}
		return pi.Tags[1] < pj.Tags[1]
	})

	// Both directional rules per frequent pair.
	total := float64(counts.Records)
	for _, pc := range pairs {
		for _, dir := range [2][2]int{{pc.pair.A, pc.pair.B}, {pc.pair.B, pc.pair.A}} {
			ante, cons := dir[0], dir[1]
			anteCount := counts.Singles[ante]
			consCount := counts.Singles[cons]
			if anteCount == 0 || consCount == 0 {
				fmt.Fprintf(w, "skipped rule %s → %s: zero-count itemset\n",
					counts.Arena.Name(ante), counts.Arena.Name(cons))
				res.Diagnostics.SkippedRules++
				continue
			}

			confidence := float64(pc.count) / float64(anteCount)
			lift := confidence / (float64(consCount) / total)
			if confidence < cfg.MinConfidence || lift < cfg.MinLift {
				continue
			}

			res.Rules = append(res.Rules, types.Rule{
				Antecedent: counts.Arena.Name(ante),
				Consequent: counts.Arena.Name(cons),
				PairCount:  pc.count,
				Support:    float64(pc.count) / total,
				Confidence: confidence,
				Lift:       lift,
			})
		}
	}

	// Deterministic order: confidence desc, lift desc, then antecedent
	// and consequent ascending.
	sort.Slice(res.Rules, func(i, j int) bool {
		ri, rj := res.Rules[i], res.Rules[j]
		if ri.Confidence != rj.Confidence {
			return ri.Confidence > rj.Confidence
		}
		if ri.Lift != rj.Lift {
			return ri.Lift > rj.Lift
		}
		if ri.Antecedent != rj.Antecedent {
			return ri.Antecedent < rj.Antecedent
		}
		return ri.Consequent < rj.Consequent
	})

	return res, nil
}
