// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/AleutianAI/pixelgp/services/evolve/gp"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var configValidate = validator.New()

// Config holds the parameters of one evolutionary run.
//
// Thread Safety: Plain value. The engine keeps its own copy.
type Config struct {
	// Population is the number of trials per generation.
	Population int `json:"population" yaml:"population" validate:"gte=1"`

	// BreedingPoolSize is the elite pool capacity.
	BreedingPoolSize int `json:"breeding_pool_size" yaml:"breeding_pool_size" validate:"gte=1"`

	// Generations is the number of generations. Zero yields an empty result.
	Generations int `json:"generations" yaml:"generations" validate:"gte=0"`

	// MaxInitialDepth is the generation depth ceiling of every tree.
	MaxInitialDepth int `json:"max_initial_depth" yaml:"max_initial_depth" validate:"gte=1,lte=24"`

	// MutationRate is the per-channel chance of mutating a bred child.
	MutationRate float64 `json:"mutation_rate" yaml:"mutation_rate" validate:"gte=0,lte=1"`

	// Fitness selects the metric.
	Fitness FitnessMetric `json:"fitness" yaml:"fitness" validate:"oneof=mean max"`

	// Seed seeds the run's random generator. Zero picks one from the clock.
	Seed int64 `json:"seed" yaml:"seed"`

	// Workers bounds the number of trials evaluated concurrently.
	Workers int `json:"workers" yaml:"workers" validate:"gte=1,lte=1024"`
}

// DefaultConfig returns the parameters used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Population:       100,
		BreedingPoolSize: 10,
		Generations:      10,
		MaxInitialDepth:  gp.DefaultMaxDepth,
		MutationRate:     gp.DefaultMutationRate,
		Fitness:          FitnessMean,
		Workers:          1,
	}
}

// Validate checks the run parameters.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// =============================================================================
// Full Configuration
// =============================================================================

// FullConfig is the file/environment configuration of the pixelgp tool.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type FullConfig struct {
	// Evolution contains the run parameters.
	Evolution EvolutionConfig `json:"evolution" yaml:"evolution"`

	// Parallel contains trial concurrency settings.
	Parallel ParallelConfig `json:"parallel" yaml:"parallel"`

	// Observability contains logging, tracing and metrics settings.
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`

	// Storage contains run store settings.
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Output contains result artifact settings.
	Output OutputConfig `json:"output" yaml:"output"`
}

// EvolutionConfig contains the run parameters.
type EvolutionConfig struct {
	Population       int           `json:"population" yaml:"population" validate:"gte=1"`
	BreedingPoolSize int           `json:"breeding_pool_size" yaml:"breeding_pool_size" validate:"gte=1"`
	Generations      int           `json:"generations" yaml:"generations" validate:"gte=0"`
	MaxInitialDepth  int           `json:"max_initial_depth" yaml:"max_initial_depth" validate:"gte=1,lte=24"`
	MutationRate     float64       `json:"mutation_rate" yaml:"mutation_rate" validate:"gte=0,lte=1"`
	Fitness          FitnessMetric `json:"fitness" yaml:"fitness" validate:"oneof=mean max"`
	Seed             int64         `json:"seed" yaml:"seed"`
}

// ParallelConfig contains trial concurrency settings.
type ParallelConfig struct {
	Workers int `json:"workers" yaml:"workers" validate:"gte=1,lte=1024"`
}

// ObservabilityConfig contains logging, tracing and metrics settings.
type ObservabilityConfig struct {
	LogLevel       string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogDir         string `json:"log_dir" yaml:"log_dir"`
	LogJSON        bool   `json:"log_json" yaml:"log_json"`
	TracingEnabled bool   `json:"tracing_enabled" yaml:"tracing_enabled"`
	TraceExporter  string `json:"trace_exporter" yaml:"trace_exporter" validate:"oneof=none stdout otlp jaeger"`
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	MetricsAddr    string `json:"metrics_addr" yaml:"metrics_addr"`
	ServiceName    string `json:"service_name" yaml:"service_name" validate:"required"`
}

// StorageConfig contains run store settings.
type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path" validate:"required_if=Enabled true"`
}

// OutputConfig contains result artifact settings. Empty paths disable the
// corresponding artifact.
type OutputConfig struct {
	Image      string  `json:"image" yaml:"image"`
	ResultsLog string  `json:"results_log" yaml:"results_log"`
	Plot       string  `json:"plot" yaml:"plot"`
	Preview    bool    `json:"preview" yaml:"preview"`
	FullScale  float64 `json:"full_scale" yaml:"full_scale" validate:"gt=0"`
}

// DefaultFullConfig returns the default configuration.
func DefaultFullConfig() FullConfig {
	d := DefaultConfig()
	return FullConfig{
		Evolution: EvolutionConfig{
			Population:       d.Population,
			BreedingPoolSize: d.BreedingPoolSize,
			Generations:      d.Generations,
			MaxInitialDepth:  d.MaxInitialDepth,
			MutationRate:     d.MutationRate,
			Fitness:          d.Fitness,
		},
		Parallel: ParallelConfig{
			Workers: runtime.NumCPU(),
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
			ServiceName:    "pixelgp",
		},
		Storage: StorageConfig{
			Path: "~/.pixelgp/runs",
		},
		Output: OutputConfig{
			ResultsLog: "results.log",
			FullScale:  255,
		},
	}
}

// EngineConfig returns the engine parameters described by the file config.
func (c FullConfig) EngineConfig() Config {
	return Config{
		Population:       c.Evolution.Population,
		BreedingPoolSize: c.Evolution.BreedingPoolSize,
		Generations:      c.Evolution.Generations,
		MaxInitialDepth:  c.Evolution.MaxInitialDepth,
		MutationRate:     c.Evolution.MutationRate,
		Fitness:          c.Evolution.Fitness,
		Seed:             c.Evolution.Seed,
		Workers:          c.Parallel.Workers,
	}
}

// LoadFullConfig loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - configPath: Path to YAML/JSON config file (optional, can be empty).
//
// Outputs:
//   - FullConfig: Merged configuration.
//   - error: Non-nil if the file exists but is invalid, or the merged
//     result fails validation.
func LoadFullConfig(configPath string) (FullConfig, error) {
	config := DefaultFullConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func loadConfigFile(path string, config *FullConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(config *FullConfig) {
	envInt("PIXELGP_POPULATION", &config.Evolution.Population)
	envInt("PIXELGP_POOL_SIZE", &config.Evolution.BreedingPoolSize)
	envInt("PIXELGP_GENERATIONS", &config.Evolution.Generations)
	envInt("PIXELGP_MAX_DEPTH", &config.Evolution.MaxInitialDepth)
	if v := os.Getenv("PIXELGP_MUTATION_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Evolution.MutationRate = f
		}
	}
	if v := os.Getenv("PIXELGP_FITNESS"); v != "" {
		config.Evolution.Fitness = FitnessMetric(v)
	}
	if v := os.Getenv("PIXELGP_SEED"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Evolution.Seed = i
		}
	}

	envInt("PIXELGP_WORKERS", &config.Parallel.Workers)

	envString("PIXELGP_LOG_LEVEL", &config.Observability.LogLevel)
	envString("PIXELGP_LOG_DIR", &config.Observability.LogDir)
	envBool("PIXELGP_LOG_JSON", &config.Observability.LogJSON)
	envBool("PIXELGP_TRACING_ENABLED", &config.Observability.TracingEnabled)
	envString("PIXELGP_TRACE_EXPORTER", &config.Observability.TraceExporter)
	envString("PIXELGP_METRIC_EXPORTER", &config.Observability.MetricExporter)
	envString("PIXELGP_OTLP_ENDPOINT", &config.Observability.OTLPEndpoint)
	envString("PIXELGP_METRICS_ADDR", &config.Observability.MetricsAddr)

	envBool("PIXELGP_STORAGE_ENABLED", &config.Storage.Enabled)
	envString("PIXELGP_DB_PATH", &config.Storage.Path)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

// Validate checks that the configuration is valid.
//
// Outputs:
//   - error: Non-nil, wrapping ErrInvalidConfig, if configuration is invalid.
func (c FullConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Observability.TraceExporter {
	case "otlp", "jaeger":
		if c.Observability.OTLPEndpoint == "" {
			return fmt.Errorf("%w: trace_exporter %q needs otlp_endpoint", ErrInvalidConfig, c.Observability.TraceExporter)
		}
	}
	return nil
}
