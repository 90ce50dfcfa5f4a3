package fpo

import (
	"github.com/promptpool/fpo/pkg/errors"
)

// Config contains configuration options for the optimization engine.
type Config struct {
	// Weight update parameters
	LearningRate   float64 `json:"learning_rate"`   // Default: 0.3
	DiscountFactor float64 `json:"discount_factor"` // Default: 0.5

	// Evolution parameters
	EvolutionInterval int     `json:"evolution_interval"` // Default: 5
	EnableEvolution   bool    `json:"enable_evolution"`   // Default: true
	MutationRate      float64 `json:"mutation_rate"`      // Default: 0.3
	MaxPopulation     int     `json:"max_population"`     // Default: 12

	// Performance parameters
	MaxConcurrency int `json:"max_concurrency"` // Default: 3

	// Reproducibility: 0 seeds the rng from the clock
	RandomSeed int64 `json:"random_seed"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		LearningRate:      0.3,
		DiscountFactor:    0.5,
		EvolutionInterval: 5,
		EnableEvolution:   true,
		MutationRate:      0.3,
		MaxPopulation:     12,
		MaxConcurrency:    3,
	}
}

// Validate checks that every parameter is inside its legal range.
func (c *Config) Validate() error {
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "learning rate must be in (0, 1]"),
			errors.Fields{"learning_rate": c.LearningRate})
	}
	if c.DiscountFactor <= 0 || c.DiscountFactor > 1 {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "discount factor must be in (0, 1]"),
			errors.Fields{"discount_factor": c.DiscountFactor})
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "mutation rate must be in [0, 1]"),
			errors.Fields{"mutation_rate": c.MutationRate})
	}
	if c.EvolutionInterval < 1 {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "evolution interval must be at least 1"),
			errors.Fields{"evolution_interval": c.EvolutionInterval})
	}
	if c.MaxPopulation < 2 {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "max population must be at least 2"),
			errors.Fields{"max_population": c.MaxPopulation})
	}
	if c.MaxConcurrency < 1 {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "max concurrency must be at least 1"),
			errors.Fields{"max_concurrency": c.MaxConcurrency})
	}
	return nil
}

// withDefaults fills zero-valued fields from the defaults, mirroring how a
// partially specified configuration is completed before validation.
func (c *Config) withDefaults() *Config {
	merged := *c
	defaults := DefaultConfig()

	if merged.LearningRate == 0 {
		merged.LearningRate = defaults.LearningRate
	}
	if merged.DiscountFactor == 0 {
		merged.DiscountFactor = defaults.DiscountFactor
	}
	if merged.EvolutionInterval <= 0 {
		merged.EvolutionInterval = defaults.EvolutionInterval
	}
	if merged.MaxPopulation <= 0 {
		merged.MaxPopulation = defaults.MaxPopulation
	}
	if merged.MaxConcurrency <= 0 {
		merged.MaxConcurrency = defaults.MaxConcurrency
	}
	return &merged
}
