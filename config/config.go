package config

import "fmt"

// Config represents the complete codescope configuration.
// It can be loaded from .codescope/config.yml with environment variable
// overrides.
type Config struct {
	Centrality CentralityConfig `yaml:"centrality" mapstructure:"centrality"`
	Impact     ImpactConfig     `yaml:"impact" mapstructure:"impact"`
	Summary    SummaryConfig    `yaml:"summary" mapstructure:"summary"`
}

// CentralityConfig tunes PageRank, cycle detection, and the score cache.
type CentralityConfig struct {
	Damping       float64 `yaml:"damping" mapstructure:"damping"`               // PageRank damping factor
	MaxIterations int     `yaml:"max_iterations" mapstructure:"max_iterations"` // power-iteration cap
	Tolerance     float64 `yaml:"tolerance" mapstructure:"tolerance"`           // L1 convergence threshold
	CycleCap      int     `yaml:"cycle_cap" mapstructure:"cycle_cap"`           // stop counting cycles past this
	CacheCapacity int     `yaml:"cache_capacity" mapstructure:"cache_capacity"` // cached score sets per engine
}

// ImpactConfig tunes change-impact propagation.
type ImpactConfig struct {
	Decay    float64 `yaml:"decay" mapstructure:"decay"`         // per-hop score multiplier
	Floor    float64 `yaml:"floor" mapstructure:"floor"`         // prune scores below this
	MaxDepth int     `yaml:"max_depth" mapstructure:"max_depth"` // propagation hop limit
}

// SummaryConfig tunes graph summarization defaults.
type SummaryConfig struct {
	DefaultExcludes []string `yaml:"default_excludes" mapstructure:"default_excludes"` // glob patterns filtered out unless overridden
	MinCharBudget   int      `yaml:"min_char_budget" mapstructure:"min_char_budget"`   // floor on budget_tokens * 4
	SeedsPreviewMax int      `yaml:"seeds_preview_max" mapstructure:"seeds_preview_max"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Centrality: CentralityConfig{
			Damping:       0.85,
			MaxIterations: 100,
			Tolerance:     1e-6,
			CycleCap:      100,
			CacheCapacity: 16,
		},
		Impact: ImpactConfig{
			Decay:    0.5,
			Floor:    0.05,
			MaxDepth: 5,
		},
		Summary: SummaryConfig{
			DefaultExcludes: []string{
				"tests/**",
				"vendor/**",
				"generated/**",
				"examples/**",
			},
			MinCharBudget:   1,
			SeedsPreviewMax: 10,
		},
	}
}

// Validate checks configuration values for consistency.
func Validate(cfg *Config) error {
	if cfg.Centrality.Damping <= 0 || cfg.Centrality.Damping >= 1 {
		return fmt.Errorf("centrality.damping must be in (0, 1), got %v", cfg.Centrality.Damping)
	}
	if cfg.Centrality.MaxIterations < 1 {
		return fmt.Errorf("centrality.max_iterations must be positive, got %d", cfg.Centrality.MaxIterations)
	}
	if cfg.Centrality.Tolerance <= 0 {
		return fmt.Errorf("centrality.tolerance must be positive, got %v", cfg.Centrality.Tolerance)
	}
	if cfg.Centrality.CacheCapacity < 1 {
		return fmt.Errorf("centrality.cache_capacity must be positive, got %d", cfg.Centrality.CacheCapacity)
	}
	if cfg.Impact.Decay <= 0 || cfg.Impact.Decay > 1 {
		return fmt.Errorf("impact.decay must be in (0, 1], got %v", cfg.Impact.Decay)
	}
	if cfg.Impact.Floor < 0 {
		return fmt.Errorf("impact.floor must be non-negative, got %v", cfg.Impact.Floor)
	}
	if cfg.Impact.MaxDepth < 1 {
		return fmt.Errorf("impact.max_depth must be positive, got %d", cfg.Impact.MaxDepth)
	}
	if cfg.Summary.MinCharBudget < 1 {
		return fmt.Errorf("summary.min_char_budget must be positive, got %d", cfg.Summary.MinCharBudget)
	}
	return nil
}
