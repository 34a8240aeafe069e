// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig marks fatal configuration errors. The pipeline
// validates configuration once up front and refuses to start on
// failure; nothing downstream re-checks thresholds.
var ErrInvalidConfig = errors.New("invalid configuration")

// MinerConfig holds the association-rule mining thresholds.
type MinerConfig struct {
	// MinSupportFraction is the minimum fraction of records an itemset
	// must appear in (default 0.02). The absolute count threshold is
	// ceil(MinSupportFraction * totalRecords).
	MinSupportFraction float64 `json:"min_support_fraction" yaml:"min_support_fraction"`

	// MinConfidence is the minimum conditional probability for a rule
	// to be kept (default 0.4).
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`

	// MinLift is the minimum lift for a rule to be kept (default 1.2).
	// Confidence and lift are independent filters.
	MinLift float64 `json:"min_lift" yaml:"min_lift"`
}

// SignificanceConfig holds the multiple-testing settings.
type SignificanceConfig struct {
	// Alpha is the family-wise significance level before Bonferroni
	// correction (default 0.05).
	Alpha float64 `json:"alpha" yaml:"alpha"`
}

// EvidenceConfig holds settings for the evidence cross-referencer.
type EvidenceConfig struct {
	// Concurrency bounds the number of in-flight lookups (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxRetries is the number of retry attempts after a failed lookup
	// before the tag is recorded as unknown (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// LookupTimeout bounds a single lookup attempt (default 10s).
	LookupTimeout time.Duration `json:"lookup_timeout" yaml:"lookup_timeout"`

	// RetryBaseDelay is the first backoff interval; it doubles on each
	// subsequent attempt (default 1s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`

	// MinLookupInterval spaces out lookups across all workers to stay
	// under third-party rate limits (default 250ms).
	MinLookupInterval time.Duration `json:"min_lookup_interval" yaml:"min_lookup_interval"`

	// CachePath is the SQLite evidence cache location
	// (default "evidence/evidence.db").
	CachePath string `json:"cache_path" yaml:"cache_path"`

	// CountsFile is the curated tag→count YAML file served by the
	// file-backed lookup (default "evidence/counts.yaml").
	CountsFile string `json:"counts_file" yaml:"counts_file"`
}

// ScoringConfig holds the surprise-score and tier settings. The tier
// boundaries are empirically chosen defaults, not derived constants.
type ScoringConfig struct {
	// CoverageSaturation is the independent count at which coverage
	// saturates to 1.0 (default 10).
	CoverageSaturation int64 `json:"coverage_saturation" yaml:"coverage_saturation"`

	// SurpriseHigh and SurpriseModerate are the classification
	// boundaries (defaults 0.015 and 0.008).
	SurpriseHigh     float64 `json:"surprise_high" yaml:"surprise_high"`
	SurpriseModerate float64 `json:"surprise_moderate" yaml:"surprise_moderate"`

	// Tier2MinCount is the independent count that qualifies a tag as
	// documented (default 3).
	Tier2MinCount int64 `json:"tier2_min_count" yaml:"tier2_min_count"`

	// Tier3MinFrequency is the report frequency that qualifies an
	// under-studied tag as frequent (default 0.093).
	Tier3MinFrequency float64 `json:"tier3_min_frequency" yaml:"tier3_min_frequency"`

	// AllowlistFile is a YAML list of tags pre-listed as official or
	// expected attributes; they always classify as tier 1
	// (default "evidence/allowlist.yaml", optional).
	AllowlistFile string `json:"allowlist_file" yaml:"allowlist_file"`
}

// Config groups all stage configurations for a pipeline run.
type Config struct {
	// DataFile is the JSON records file produced by the external
	// extraction step (default "data/records.json").
	DataFile string `json:"data_file" yaml:"data_file"`

	// AnalysisDir is where stage artifacts are written
	// (default "analysis").
	AnalysisDir string `json:"analysis_dir" yaml:"analysis_dir"`

	Miner        MinerConfig        `json:"miner" yaml:"miner"`
	Significance SignificanceConfig `json:"significance" yaml:"significance"`
	Evidence     EvidenceConfig     `json:"evidence" yaml:"evidence"`
	Scoring      ScoringConfig      `json:"scoring" yaml:"scoring"`
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() Config {
	return Config{
		DataFile:    "data/records.json",
		AnalysisDir: "analysis",
		Miner: MinerConfig{
			MinSupportFraction: 0.02,
			MinConfidence:      0.4,
			MinLift:            1.2,
		},
		Significance: SignificanceConfig{
			Alpha: 0.05,
		},
		Evidence: EvidenceConfig{
			Concurrency:       4,
			MaxRetries:        3,
			LookupTimeout:     10 * time.Second,
			RetryBaseDelay:    time.Second,
			MinLookupInterval: 250 * time.Millisecond,
			CachePath:         "evidence/evidence.db",
			CountsFile:        "evidence/counts.yaml",
		},
		Scoring: ScoringConfig{
			CoverageSaturation: 10,
			SurpriseHigh:       0.015,
			SurpriseModerate:   0.008,
			Tier2MinCount:      3,
			Tier3MinFrequency:  0.093,
			AllowlistFile:      "evidence/allowlist.yaml",
		},
	}
}

// Validate checks every threshold once. Any violation is a fatal
// configuration error; the run must not start.
func (c Config) Validate() error {
	if c.DataFile == "" {
		return fmt.Errorf("%w: data_file must be set", ErrInvalidConfig)
	}
	if c.AnalysisDir == "" {
		return fmt.Errorf("%w: analysis_dir must be set", ErrInvalidConfig)
	}
	if err := c.Miner.Validate(); err != nil {
		return err
	}
	if err := c.Significance.Validate(); err != nil {
		return err
	}
	if err := c.Evidence.Validate(); err != nil {
		return err
	}
	return c.Scoring.Validate()
}

// Validate checks the mining thresholds.
func (c MinerConfig) Validate() error {
	if c.MinSupportFraction <= 0 || c.MinSupportFraction > 1 {
		return fmt.Errorf("%w: min_support_fraction %v outside (0,1]", ErrInvalidConfig, c.MinSupportFraction)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence %v outside [0,1]", ErrInvalidConfig, c.MinConfidence)
	}
	if c.MinLift <= 0 {
		return fmt.Errorf("%w: min_lift %v must be positive", ErrInvalidConfig, c.MinLift)
	}
	return nil
}

// Validate checks the significance settings.
func (c SignificanceConfig) Validate() error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("%w: alpha %v outside (0,1)", ErrInvalidConfig, c.Alpha)
	}
	return nil
}

// Validate checks the cross-referencer settings.
func (c EvidenceConfig) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency %d must be positive", ErrInvalidConfig, c.Concurrency)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries %d must not be negative", ErrInvalidConfig, c.MaxRetries)
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("%w: lookup_timeout %v must be positive", ErrInvalidConfig, c.LookupTimeout)
	}
	return nil
}

// Validate checks the scoring settings.
func (c ScoringConfig) Validate() error {
	if c.CoverageSaturation <= 0 {
		return fmt.Errorf("%w: coverage_saturation %d must be positive", ErrInvalidConfig, c.CoverageSaturation)
	}
	if c.SurpriseHigh < c.SurpriseModerate {
		return fmt.Errorf("%w: surprise_high %v below surprise_moderate %v", ErrInvalidConfig, c.SurpriseHigh, c.SurpriseModerate)
	}
	if c.Tier3MinFrequency < 0 || c.Tier3MinFrequency > 1 {
		return fmt.Errorf("%w: tier3_min_frequency %v outside [0,1]", ErrInvalidConfig, c.Tier3MinFrequency)
	}
	return nil
}
