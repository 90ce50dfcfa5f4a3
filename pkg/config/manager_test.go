package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerLoadDefaultsOnly(t *testing.T) {
	manager, err := NewManager(WithSources(NewFileSource()))
	require.NoError(t, err)

	require.NoError(t, manager.Load())
	cfg := manager.Get()
	require.NotNil(t, cfg)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, 0.3, cfg.Optimizer.LearningRate)
}

func TestManagerGetBeforeLoad(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)
	assert.Nil(t, manager.Get())
}

func TestManagerLoadExplicitFile(t *testing.T) {
	path := writeConfigFile(t, "fpo.yaml", `
store:
  backend: sqlite
  path: runs/registry.db
optimizer:
  learning_rate: 0.4
`)

	manager, err := NewManager(WithConfigPath(path), WithSources(NewFileSource()))
	require.NoError(t, err)
	require.NoError(t, manager.Load())

	cfg := manager.Get()
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "runs/registry.db", cfg.Store.Path)
	assert.Equal(t, 0.4, cfg.Optimizer.LearningRate)
	assert.Equal(t, 0.5, cfg.Optimizer.DiscountFactor)
}

func TestManagerLoadMissingExplicitFile(t *testing.T) {
	manager, err := NewManager(WithConfigPath("absent.yaml"), WithSources(NewFileSource()))
	require.NoError(t, err)

	err = manager.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestManagerEnvironmentOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "fpo.yaml", `
store:
  path: from-file.json
optimizer:
  learning_rate: 0.4
`)
	t.Setenv("FPO_STORE_PATH", "from-env.json")

	manager, err := NewManager(WithConfigPath(path))
	require.NoError(t, err)
	require.NoError(t, manager.Load())

	cfg := manager.Get()
	assert.Equal(t, "from-env.json", cfg.Store.Path)
	assert.Equal(t, 0.4, cfg.Optimizer.LearningRate)
}

func TestManagerLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfigFile(t, "fpo.yaml", `
optimizer:
  learning_rate: 2.0
`)

	manager, err := NewManager(WithConfigPath(path), WithSources(NewFileSource()))
	require.NoError(t, err)

	err = manager.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Nil(t, manager.Get())
}
