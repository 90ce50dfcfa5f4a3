// Package runner wires the resolved configuration into engine components so
// commands stay free of assembly boilerplate.
package runner

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/promptpool/fpo/pkg/cache"
	"github.com/promptpool/fpo/pkg/config"
	"github.com/promptpool/fpo/pkg/core"
	"github.com/promptpool/fpo/pkg/datasets"
	"github.com/promptpool/fpo/pkg/fpo"
	"github.com/promptpool/fpo/pkg/llm"
	"github.com/promptpool/fpo/pkg/logging"
	"github.com/promptpool/fpo/pkg/store"
)

// LoadConfig resolves the effective configuration: from the given file when
// path is set, otherwise from the default search paths plus environment.
func LoadConfig(path string) (*config.Config, error) {
	var opts []config.ManagerOption
	if path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	manager, err := config.NewManager(opts...)
	if err != nil {
		return nil, err
	}
	if err := manager.Load(); err != nil {
		return nil, err
	}
	return manager.Get(), nil
}

// SetupLogging installs the global logger at the configured severity. verbose
// forces DEBUG.
func SetupLogging(cfg *config.Config, verbose bool) {
	severity := cfg.Logging.Severity()
	if verbose {
		severity = logging.DEBUG
	}

	output := logging.NewConsoleOutput(true, logging.WithColor(true))
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: severity,
		Outputs:  []logging.Output{output},
	}))
}

// BuildStore creates the registry store named by the config.
func BuildStore(cfg *config.Config) (core.Store, error) {
	switch cfg.Store.Backend {
	case "file":
		return store.NewFileStore(cfg.Store.Path), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// CloseStore releases store resources when the backend holds any.
func CloseStore(st core.Store) {
	if closer, ok := st.(io.Closer); ok {
		_ = closer.Close()
	}
}

// BuildEvaluator creates the scoring oracle from the evaluator config,
// wrapped with score memoization when the cache is enabled.
func BuildEvaluator(cfg *config.Config) (core.Evaluator, error) {
	evaluator, err := llm.NewEvaluator(cfg.Evaluator.Provider, cfg.Evaluator.APIKey, clientOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	if !cfg.Evaluator.Cache.Enabled {
		return evaluator, nil
	}

	backend, err := cache.New(cfg.Evaluator.Cache.BackendConfig())
	if err != nil {
		return nil, err
	}
	return cache.NewCachedEvaluator(evaluator, backend, cfg.Evaluator.Cache.TTL), nil
}

// CloseEvaluator releases evaluator resources when the implementation holds
// any, such as a score cache.
func CloseEvaluator(ev core.Evaluator) {
	if closer, ok := ev.(io.Closer); ok {
		_ = closer.Close()
	}
}

// BuildRewriter creates the model-assisted crossover rewriter from the same
// evaluator config.
func BuildRewriter(cfg *config.Config) (fpo.Rewriter, error) {
	return llm.NewRewriter(cfg.Evaluator.Provider, cfg.Evaluator.APIKey, clientOptions(cfg)...)
}

func clientOptions(cfg *config.Config) []llm.Option {
	var opts []llm.Option
	if cfg.Evaluator.Model != "" {
		opts = append(opts, llm.WithModel(anthropic.Model(cfg.Evaluator.Model)))
	}
	if cfg.Evaluator.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(int64(cfg.Evaluator.MaxTokens)))
	}
	if cfg.Evaluator.Timeout > 0 {
		opts = append(opts, llm.WithTimeout(cfg.Evaluator.Timeout))
	}
	return opts
}

// LoadCases reads evaluation cases from a JSON or Parquet file, chosen by
// extension.
func LoadCases(path string) ([]core.TestCase, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return datasets.LoadJSONCases(path)
	case ".parquet":
		return datasets.LoadParquetCases(path)
	default:
		return nil, fmt.Errorf("unsupported case file extension %q, want .json or .parquet", filepath.Ext(path))
	}
}
