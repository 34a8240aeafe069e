// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Itemset is a non-empty set of co-occurring tags with the number of
// records containing all of them. Tags are kept sorted so equal sets
// compare and serialize identically.
type Itemset struct {
	Tags  []string `json:"tags"`
	Count int      `json:"count"`
}

// Size returns the itemset's cardinality.
func (s Itemset) Size() int {
	return len(s.Tags)
}

// Rule is a directional association antecedent → consequent derived
// from a frequent pair. Rules are recomputed whenever thresholds
// change; they are never mutated in place.
type Rule struct {
	Antecedent string  `json:"antecedent"`
	Consequent string  `json:"consequent"`
	PairCount  int     `json:"pair_count"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
}
