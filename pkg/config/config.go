// Package config loads and validates the engine configuration from YAML
// files and FPO_-prefixed environment variables, with environment values
// taking priority over file values.
package config

import (
	"time"

	"github.com/promptpool/fpo/pkg/cache"
	"github.com/promptpool/fpo/pkg/fpo"
	"github.com/promptpool/fpo/pkg/logging"
)

// Config is the complete configuration for an optimization run.
type Config struct {
	// Registry storage backend
	Store StoreConfig `yaml:"store" validate:"required"`

	// Engine parameters
	Optimizer OptimizerConfig `yaml:"optimizer" validate:"required"`

	// Scoring model
	Evaluator EvaluatorConfig `yaml:"evaluator,omitempty" validate:"omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`
}

// StoreConfig selects where the template registry lives.
type StoreConfig struct {
	// Backend type (file, sqlite)
	Backend string `yaml:"backend" validate:"required,oneof=file sqlite"`

	// Registry path (JSON file or SQLite database)
	Path string `yaml:"path" validate:"required"`
}

// OptimizerConfig holds the weight-update and evolution parameters.
type OptimizerConfig struct {
	// EMA learning rate
	LearningRate float64 `yaml:"learning_rate" validate:"gt=0,lte=1"`

	// Child weight discount at crossover
	DiscountFactor float64 `yaml:"discount_factor" validate:"gt=0,lte=1"`

	// Iterations between evolution attempts
	EvolutionInterval int `yaml:"evolution_interval" validate:"min=1"`

	// Whether crossover runs at all
	EnableEvolution bool `yaml:"enable_evolution"`

	// Probability of mutating an offspring template
	MutationRate float64 `yaml:"mutation_rate" validate:"gte=0,lte=1"`

	// Population bound enforced after evolution
	MaxPopulation int `yaml:"max_population" validate:"min=2"`

	// Parallel evaluation bound
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=1"`

	// Seed for the evolution rng, 0 seeds from the clock
	RandomSeed int64 `yaml:"random_seed,omitempty"`
}

// EvaluatorConfig configures the scoring model.
type EvaluatorConfig struct {
	// Provider name
	Provider string `yaml:"provider" validate:"required,oneof=anthropic"`

	// Model ID, empty uses the provider default
	Model string `yaml:"model,omitempty"`

	// API key, empty falls back to the provider environment variable
	APIKey string `yaml:"api_key,omitempty"`

	// Reply length bound per scoring request
	MaxTokens int `yaml:"max_tokens,omitempty" validate:"omitempty,min=1"`

	// Per-request timeout
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"omitempty,min_duration=1s"`

	// Score memoization for repeated template/case content
	Cache CacheConfig `yaml:"cache,omitempty" validate:"omitempty"`
}

// CacheConfig configures score memoization in front of the evaluator.
type CacheConfig struct {
	// Whether scoring goes through the cache at all
	Enabled bool `yaml:"enabled"`

	// Backend type (memory, sqlite)
	Backend string `yaml:"backend,omitempty" validate:"omitempty,oneof=memory sqlite"`

	// Database path, sqlite only
	Path string `yaml:"path,omitempty"`

	// Entry bound, 0 means unbounded
	MaxEntries int `yaml:"max_entries,omitempty" validate:"omitempty,min=1"`

	// Entry lifetime, 0 means no expiration
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// BackendConfig maps the section onto the cache package's own configuration.
func (c CacheConfig) BackendConfig() cache.Config {
	return cache.Config{
		Backend:    c.Backend,
		Path:       c.Path,
		MaxEntries: c.MaxEntries,
		DefaultTTL: c.TTL,
	}
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Log level (DEBUG, INFO, WARN, ERROR, FATAL)
	Level string `yaml:"level" validate:"omitempty,log_level"`
}

// GetDefaultConfig returns the configuration used when no file or
// environment override is present.
func GetDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "file",
			Path:    "registry.json",
		},
		Optimizer: OptimizerConfig{
			LearningRate:      0.3,
			DiscountFactor:    0.5,
			EvolutionInterval: 5,
			EnableEvolution:   true,
			MutationRate:      0.3,
			MaxPopulation:     12,
			MaxConcurrency:    3,
		},
		Evaluator: EvaluatorConfig{
			Provider:  "anthropic",
			MaxTokens: 256,
			Timeout:   30 * time.Second,
			Cache: CacheConfig{
				Backend:    "memory",
				MaxEntries: 512,
				TTL:        time.Hour,
			},
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Validate checks the configuration using the global validator.
func (c *Config) Validate() error {
	return ValidateConfiguration(c)
}

// EngineConfig maps the optimizer section onto the engine's own
// configuration struct.
func (c *Config) EngineConfig() *fpo.Config {
	return &fpo.Config{
		LearningRate:      c.Optimizer.LearningRate,
		DiscountFactor:    c.Optimizer.DiscountFactor,
		EvolutionInterval: c.Optimizer.EvolutionInterval,
		EnableEvolution:   c.Optimizer.EnableEvolution,
		MutationRate:      c.Optimizer.MutationRate,
		MaxPopulation:     c.Optimizer.MaxPopulation,
		MaxConcurrency:    c.Optimizer.MaxConcurrency,
		RandomSeed:        c.Optimizer.RandomSeed,
	}
}

// Severity maps the configured level onto the logger's severity scale.
func (l LoggingConfig) Severity() logging.Severity {
	return logging.ParseSeverity(l.Level)
}
