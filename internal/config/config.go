// Package config carries all tunables of the index pipeline. Defaults come
// from struct tags, the environment (SVI_ prefix) overrides them, and an
// optional YAML file overrides both. Nothing in the pipeline reads a
// package-level constant: every component receives its knobs from here.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"svindex/internal/errs"
)

// Config is the complete engine configuration.
type Config struct {
	Registry RegistryConfig `yaml:"registry" envconfig:"REGISTRY"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	HTTP     HTTPConfig     `yaml:"http" envconfig:"HTTP"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// RegistryConfig configures the statistical registry client.
type RegistryConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.census.gov/data" validate:"required,url"`
	APIKey            string        `yaml:"api_key" envconfig:"API_KEY"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"10" validate:"gt=0"`
	Burst             int           `yaml:"burst" envconfig:"BURST" default:"5" validate:"gt=0"`
}

// PipelineConfig configures hole resolution and index synthesis.
type PipelineConfig struct {
	// PopulationFloor drops areas at or below this population from the
	// initial pull.
	PopulationFloor float64 `yaml:"population_floor" envconfig:"POPULATION_FLOOR" default:"75" validate:"gte=0"`
	// HouseholdSizeFloor drops special-use areas (airports, prisons) whose
	// average household size sits below it.
	HouseholdSizeFloor float64 `yaml:"household_size_floor" envconfig:"HOUSEHOLD_SIZE_FLOOR" default:"0.01" validate:"gte=0"`
	// PopulationVariable and HouseholdSizeVariable are the registry codes
	// the two filters read.
	PopulationVariable    string `yaml:"population_variable" envconfig:"POPULATION_VARIABLE" default:"B01001_001E"`
	HouseholdSizeVariable string `yaml:"household_size_variable" envconfig:"HOUSEHOLD_SIZE_VARIABLE" default:"B25010_001E"`
	// NeighborSampleFloor gates grouped-median interpolation: a pooled
	// neighbor sample at or below it is too sparse to estimate from.
	NeighborSampleFloor float64 `yaml:"neighbor_sample_floor" envconfig:"NEIGHBOR_SAMPLE_FLOOR" default:"40" validate:"gte=0"`
	// SignificanceThreshold is the minimum absolute factor loading
	// (rounded to one decimal) for an indicator to stay in the factor
	// analysis.
	SignificanceThreshold float64 `yaml:"significance_threshold" envconfig:"SIGNIFICANCE_THRESHOLD" default:"0.5" validate:"gte=0,lte=1"`
	// FetchConcurrency bounds the registry worker pool.
	FetchConcurrency int `yaml:"fetch_concurrency" envconfig:"FETCH_CONCURRENCY" default:"8" validate:"gt=0"`
	// Interpolate toggles grouped-median interpolation. It is forced off
	// for years whose bracket tables are unpublished regardless of this
	// setting.
	Interpolate bool `yaml:"interpolate" envconfig:"INTERPOLATE" default:"true"`
}

// HTTPConfig configures the optional HTTP surface.
type HTTPConfig struct {
	Addr         string        `yaml:"addr" envconfig:"ADDR" default:":8090"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"5m"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
}

// Load builds the configuration from defaults, environment, and the optional
// YAML file at path (ignored when empty or missing).
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("SVI", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, errs.Configuration("config.Load", "parse %s: %v", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errs.Configuration("config.Validate", "%v", err)
	}
	return nil
}

// Supported study years. The registry publishes the variable set used here
// for these vintages only.
const (
	MinYear = 2013
	MaxYear = 2022
)

// bracketTablesSince is the first year the grouped-frequency bracket tables
// are published; earlier vintages cannot be interpolated.
const bracketTablesSince = 2015

// ValidateYear rejects years outside the supported range.
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return errs.Configuration("config.ValidateYear", "invalid year %d, must be between %d and %d", year, MinYear, MaxYear)
	}
	return nil
}

// ValidateBoundary rejects boundary levels the pipeline cannot run at.
func ValidateBoundary(boundary string) error {
	if boundary != "bg" && boundary != "tract" {
		return errs.Configuration("config.ValidateBoundary", "invalid boundary %q, must be one of: bg, tract", boundary)
	}
	return nil
}

// InterpolationAvailable reports whether grouped-median interpolation is
// possible for the given year.
func InterpolationAvailable(year int) bool {
	return year >= bracketTablesSince
}
