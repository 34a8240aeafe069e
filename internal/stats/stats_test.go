// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stats

import (
	"math"
	"testing"
)

func TestBinomialTailPExactSmallCases(t *testing.T) {
	tests := []struct {
		name string
		k, n int
		p    float64
		want float64
	}{
		{"k=0 is certain", 0, 10, 0.5, 1.0},
		{"k>n is impossible", 11, 10, 0.5, 0.0},
		{"fair coin at least 1 of 2", 1, 2, 0.5, 0.75},
		{"fair coin both of 2", 2, 2, 0.5, 0.25},
		{"all ten heads", 10, 10, 0.5, math.Pow(0.5, 10)},
		{"at least 1 of 3 at p=0.1", 1, 3, 0.1, 1 - math.Pow(0.9, 3)},
		{"p=0 never succeeds", 1, 5, 0.0, 0.0},
		{"p=1 always succeeds", 3, 5, 1.0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BinomialTailP(tt.k, tt.n, tt.p)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("BinomialTailP(%d, %d, %v) = %v, want %v", tt.k, tt.n, tt.p, got, tt.want)
			}
		})
	}
}

func TestBinomialTailPMonotoneInK(t *testing.T) {
	// P(X >= k) is non-increasing in k.
	prev := 1.0
	for k := 0; k <= 20; k++ {
		cur := BinomialTailP(k, 20, 0.3)
		if cur > prev+1e-15 {
			t.Fatalf("tail probability increased at k=%d: %v > %v", k, cur, prev)
		}
		prev = cur
	}
}

func TestBinomialTailPLargeN(t *testing.T) {
	// 100 of 537 records under p0 = 1/50 is wildly improbable; the
	// log-space sum must not overflow or go negative.
	got := BinomialTailP(100, 537, 0.02)
	if got < 0 || got > 1e-30 {
		t.Errorf("BinomialTailP(100, 537, 0.02) = %v, want tiny positive", got)
	}
}

func TestApplyBonferroniAdjustment(t *testing.T) {
	ps := []TagP{
		{Tag: "b", Count: 40, RawP: 0.0001},
		{Tag: "a", Count: 10, RawP: 0.04},
		{Tag: "c", Count: 5, RawP: 0.9},
	}

	results := ApplyBonferroni(ps, 0.05)
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	// Sorted by tag.
	if results[0].Tag != "a" || results[1].Tag != "b" || results[2].Tag != "c" {
		t.Errorf("results out of order: %v, %v, %v", results[0].Tag, results[1].Tag, results[2].Tag)
	}

	wantAlpha := 0.05 / 3
	for _, r := range results {
		if math.Abs(r.AdjustedAlpha-wantAlpha) > 1e-15 {
			t.Errorf("AdjustedAlpha = %v, want %v", r.AdjustedAlpha, wantAlpha)
		}
	}

	// 0.04 passes uncorrected alpha but not the corrected one: the
	// correction is conservative on purpose.
	if results[0].Significant {
		t.Error("a (rawP 0.04) should not be significant after correction")
	}
	if !results[1].Significant {
		t.Error("b (rawP 0.0001) should be significant")
	}
	if results[2].Significant {
		t.Error("c (rawP 0.9) should not be significant")
	}
}

func TestApplyBonferroniPure(t *testing.T) {
	ps := []TagP{{Tag: "a", Count: 1, RawP: 0.5}}
	ApplyBonferroni(ps, 0.05)
	if ps[0].RawP != 0.5 || ps[0].Tag != "a" {
		t.Error("ApplyBonferroni must not mutate its input")
	}
}

func TestApplyBonferroniEmpty(t *testing.T) {
	if got := ApplyBonferroni(nil, 0.05); got != nil {
		t.Errorf("ApplyBonferroni(nil) = %v, want nil", got)
	}
}

func TestTestTagFrequencies(t *testing.T) {
	// 4 tags, uniform null p0 = 0.25, n = 20. A tag in every record is
	// an extreme outlier; a tag in 5 of 20 sits exactly at expectation.
	tagCounts := map[string]int{
		"dominant": 20,
		"expected": 5,
		"rare":     1,
		"absent:0": 0,
	}

	results := TestTagFrequencies(tagCounts, 20, 0.05)
	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}

	byTag := make(map[string]Result)
	for _, r := range results {
		byTag[r.Tag] = r
	}

	if !byTag["dominant"].Significant {
		t.Error("dominant tag should be significant")
	}
	if byTag["expected"].Significant {
		t.Error("tag at the null expectation should not be significant")
	}
	if byTag["rare"].Significant {
		t.Error("rare tag should not be significant (one-sided greater)")
	}
	if p := byTag["absent:0"].RawP; p != 1.0 {
		t.Errorf("RawP for zero count = %v, want 1.0", p)
	}
}

func TestTestTagFrequenciesEmpty(t *testing.T) {
	if got := TestTagFrequencies(nil, 100, 0.05); got != nil {
		t.Errorf("TestTagFrequencies(nil) = %v, want nil", got)
	}
	if got := TestTagFrequencies(map[string]int{"a": 1}, 0, 0.05); got != nil {
		t.Errorf("TestTagFrequencies with 0 records = %v, want nil", got)
	}
}
