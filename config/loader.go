package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CODESCOPE_*)
// 2. Config file (.codescope/config.yml or .codescope/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".codescope")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	// Enable environment variable overrides
	v.SetEnvPrefix("CODESCOPE")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., CODESCOPE_CENTRALITY_DAMPING)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables to config keys
	v.BindEnv("centrality.damping")
	v.BindEnv("centrality.max_iterations")
	v.BindEnv("centrality.tolerance")
	v.BindEnv("centrality.cycle_cap")
	v.BindEnv("centrality.cache_capacity")

	v.BindEnv("impact.decay")
	v.BindEnv("impact.floor")
	v.BindEnv("impact.max_depth")

	v.BindEnv("summary.min_char_budget")
	v.BindEnv("summary.seeds_preview_max")

	setDefaults(v)

	// Config file not found is acceptable; defaults + env vars apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("centrality.damping", defaults.Centrality.Damping)
	v.SetDefault("centrality.max_iterations", defaults.Centrality.MaxIterations)
	v.SetDefault("centrality.tolerance", defaults.Centrality.Tolerance)
	v.SetDefault("centrality.cycle_cap", defaults.Centrality.CycleCap)
	v.SetDefault("centrality.cache_capacity", defaults.Centrality.CacheCapacity)

	v.SetDefault("impact.decay", defaults.Impact.Decay)
	v.SetDefault("impact.floor", defaults.Impact.Floor)
	v.SetDefault("impact.max_depth", defaults.Impact.MaxDepth)

	v.SetDefault("summary.default_excludes", defaults.Summary.DefaultExcludes)
	v.SetDefault("summary.min_char_budget", defaults.Summary.MinCharBudget)
	v.SetDefault("summary.seeds_preview_max", defaults.Summary.SeedsPreviewMax)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
