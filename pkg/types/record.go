// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data structures shared across pipeline stages.
package types

// Record is one patient narrative's extracted facts: an identifier and
// the set of canonical symptom tags found in it. Records are produced
// by the external extraction step and never modified afterwards.
type Record struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}
