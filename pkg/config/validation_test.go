package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	require.NoError(t, ValidateConfiguration(GetDefaultConfig()))
}

func TestValidateConfigNil(t *testing.T) {
	err := ValidateConfiguration(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is nil")
}

func TestValidateConfigRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"directory store path", func(c *Config) { c.Store.Path = "runs/" }},
		{"zero learning rate", func(c *Config) { c.Optimizer.LearningRate = 0 }},
		{"learning rate above one", func(c *Config) { c.Optimizer.LearningRate = 1.5 }},
		{"zero discount factor", func(c *Config) { c.Optimizer.DiscountFactor = 0 }},
		{"negative mutation rate", func(c *Config) { c.Optimizer.MutationRate = -0.1 }},
		{"zero evolution interval", func(c *Config) { c.Optimizer.EvolutionInterval = 0 }},
		{"population of one", func(c *Config) { c.Optimizer.MaxPopulation = 1 }},
		{"zero concurrency", func(c *Config) { c.Optimizer.MaxConcurrency = 0 }},
		{"unknown provider", func(c *Config) { c.Evaluator.Provider = "openai" }},
		{"sub-second timeout", func(c *Config) { c.Evaluator.Timeout = 50 * time.Millisecond }},
		{"unknown cache backend", func(c *Config) { c.Evaluator.Cache.Backend = "redis" }},
		{"negative cache entry bound", func(c *Config) { c.Evaluator.Cache.MaxEntries = -1 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "LOUD" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, ValidateConfiguration(cfg))
		})
	}
}

func TestValidateConfigBoundaryValues(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Optimizer.LearningRate = 1.0
	cfg.Optimizer.MutationRate = 0
	cfg.Optimizer.MaxPopulation = 2
	cfg.Evaluator.Timeout = time.Second
	require.NoError(t, ValidateConfiguration(cfg))
}

func TestValidationErrorsMessage(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Backend = "redis"
	cfg.Optimizer.LearningRate = 0

	err := ValidateConfiguration(cfg)
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(verrs), 2)
	assert.Contains(t, err.Error(), "validation failed:")
}

func TestValidationErrorFallbackMessage(t *testing.T) {
	verr := ValidationError{Field: "Store.Path"}
	assert.Equal(t, "Store.Path failed validation", verr.Error())

	withMessage := ValidationError{Field: "Store.Path", Message: "registry path must name a file"}
	assert.Equal(t, "registry path must name a file", withMessage.Error())
}
