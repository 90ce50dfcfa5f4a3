package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source represents a configuration source.
type Source interface {
	// Load loads configuration from the source into the provided config
	Load(config *Config, paths []string) error

	// Name returns the name of the source
	Name() string

	// Priority returns the priority of the source (higher priority overrides lower)
	Priority() int
}

// FileSource loads configuration from YAML files.
type FileSource struct {
	priority int
}

// NewFileSource creates a new file source.
func NewFileSource() *FileSource {
	return &FileSource{priority: 100}
}

// Name returns the name of the file source.
func (fs *FileSource) Name() string {
	return "file"
}

// Priority returns the priority of the file source.
func (fs *FileSource) Priority() int {
	return fs.priority
}

// Load merges every existing file in paths over the current config. Keys
// absent from a file leave the current values untouched.
func (fs *FileSource) Load(config *Config, paths []string) error {
	for _, path := range paths {
		if !fileExists(path) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML from %s: %w", path, err)
		}
	}

	return nil
}

// EnvironmentSource loads configuration from environment variables.
type EnvironmentSource struct {
	priority int
	prefix   string
}

// NewEnvironmentSource creates a new environment source.
func NewEnvironmentSource() *EnvironmentSource {
	return &EnvironmentSource{
		priority: 200, // Higher priority than file source
		prefix:   "FPO_",
	}
}

// NewEnvironmentSourceWithPrefix creates a new environment source with custom prefix.
func NewEnvironmentSourceWithPrefix(prefix string) *EnvironmentSource {
	return &EnvironmentSource{
		priority: 200,
		prefix:   prefix,
	}
}

// Name returns the name of the environment source.
func (es *EnvironmentSource) Name() string {
	return "environment"
}

// Priority returns the priority of the environment source.
func (es *EnvironmentSource) Priority() int {
	return es.priority
}

// Load applies environment variable overrides. FPO_STORE_PATH maps to the
// dot path store.path, FPO_OPTIMIZER_LEARNING_RATE to
// optimizer.learning.rate, and so on.
func (es *EnvironmentSource) Load(config *Config, paths []string) error {
	envVars := es.getEnvironmentVariables()

	// Sort keys for a deterministic application order
	keys := make([]string, 0, len(envVars))
	for key := range envVars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := envVars[key]
		if err := es.setConfigValue(config, key, value); err != nil {
			return fmt.Errorf("failed to set config value %s=%s: %w", key, value, err)
		}
	}

	return nil
}

// getEnvironmentVariables gets all environment variables with the configured prefix.
func (es *EnvironmentSource) getEnvironmentVariables() map[string]string {
	envVars := make(map[string]string)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key, value := parts[0], parts[1]
		if strings.HasPrefix(key, es.prefix) {
			configKey := strings.ToLower(strings.TrimPrefix(key, es.prefix))
			configKey = strings.ReplaceAll(configKey, "_", ".")
			envVars[configKey] = value
		}
	}

	return envVars
}

// setConfigValue sets a configuration value using dot notation. Unknown keys
// are ignored rather than failing, so unrelated FPO_ variables stay harmless.
func (es *EnvironmentSource) setConfigValue(config *Config, key, value string) error {
	switch {
	case strings.HasPrefix(key, "store."):
		return es.setStoreValue(&config.Store, strings.TrimPrefix(key, "store."), value)
	case strings.HasPrefix(key, "optimizer."):
		return es.setOptimizerValue(&config.Optimizer, strings.TrimPrefix(key, "optimizer."), value)
	case strings.HasPrefix(key, "evaluator."):
		return es.setEvaluatorValue(&config.Evaluator, strings.TrimPrefix(key, "evaluator."), value)
	case strings.HasPrefix(key, "logging."):
		return es.setLoggingValue(&config.Logging, strings.TrimPrefix(key, "logging."), value)
	default:
		return nil
	}
}

func (es *EnvironmentSource) setStoreValue(store *StoreConfig, key, value string) error {
	switch key {
	case "backend":
		store.Backend = value
	case "path":
		store.Path = value
	}
	return nil
}

func (es *EnvironmentSource) setOptimizerValue(optimizer *OptimizerConfig, key, value string) error {
	switch key {
	case "learning.rate", "learningrate":
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid learning rate: %s", value)
		}
		optimizer.LearningRate = rate
	case "discount.factor", "discountfactor":
		factor, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid discount factor: %s", value)
		}
		optimizer.DiscountFactor = factor
	case "evolution.interval":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid evolution interval: %s", value)
		}
		optimizer.EvolutionInterval = interval
	case "enable.evolution":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid evolution toggle: %s", value)
		}
		optimizer.EnableEvolution = enabled
	case "mutation.rate":
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid mutation rate: %s", value)
		}
		optimizer.MutationRate = rate
	case "max.population":
		bound, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max population: %s", value)
		}
		optimizer.MaxPopulation = bound
	case "max.concurrency":
		bound, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max concurrency: %s", value)
		}
		optimizer.MaxConcurrency = bound
	case "random.seed":
		seed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid random seed: %s", value)
		}
		optimizer.RandomSeed = seed
	}
	return nil
}

func (es *EnvironmentSource) setEvaluatorValue(evaluator *EvaluatorConfig, key, value string) error {
	switch key {
	case "provider":
		evaluator.Provider = value
	case "model":
		evaluator.Model = value
	case "api.key", "apikey":
		evaluator.APIKey = value
	case "max.tokens", "maxtokens":
		tokens, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max tokens: %s", value)
		}
		evaluator.MaxTokens = tokens
	case "timeout":
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout duration: %s", value)
		}
		evaluator.Timeout = timeout
	case "cache.enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid cache toggle: %s", value)
		}
		evaluator.Cache.Enabled = enabled
	case "cache.backend":
		evaluator.Cache.Backend = value
	case "cache.path":
		evaluator.Cache.Path = value
	case "cache.max.entries", "cache.maxentries":
		entries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid cache entry bound: %s", value)
		}
		evaluator.Cache.MaxEntries = entries
	case "cache.ttl":
		ttl, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid cache ttl: %s", value)
		}
		evaluator.Cache.TTL = ttl
	}
	return nil
}

func (es *EnvironmentSource) setLoggingValue(logging *LoggingConfig, key, value string) error {
	if key == "level" {
		logging.Level = strings.ToUpper(value)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
