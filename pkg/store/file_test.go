package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptpool/fpo/pkg/core"
	"github.com/promptpool/fpo/pkg/errors"
)

// samplePopulation builds a small registry with seeds, one evolved child, and
// scored history, the shape a store has to round-trip without loss.
func samplePopulation(t *testing.T) *core.Population {
	t.Helper()

	created := time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)
	pop := core.NewPopulation("1.0", []string{"news", "video"})

	require.NoError(t, pop.Add(&core.PromptCandidate{
		ID: "seed-a", Name: "summarizer", Template: "Summarize the transcript",
		Weight: 0.65, Generation: 0, CreatedAt: created,
		Performance: []core.PerformanceRecord{
			{Iteration: 1, Score: 1.0, Timestamp: created.Add(time.Minute)},
		},
	}))
	require.NoError(t, pop.Add(&core.PromptCandidate{
		ID: "seed-b", Name: "rater", Template: "Rate the clip",
		Weight: 0.35, Generation: 0, CreatedAt: created,
		Performance: []core.PerformanceRecord{
			{Iteration: 1, Score: 0.0, Timestamp: created.Add(time.Minute)},
		},
	}))
	require.NoError(t, pop.Add(&core.PromptCandidate{
		ID: "child-1", Name: "summarizer x rater", Template: "Summarize the clip",
		Weight: 0.25, Generation: 1, Parents: []string{"seed-a", "seed-b"},
		CreatedAt: created.Add(2 * time.Minute), Performance: []core.PerformanceRecord{},
	}))

	pop.ChampionID = "seed-a"
	require.NoError(t, pop.Validate())
	return pop
}

// assertPopulationsEquivalent compares two populations field by field.
// Timestamps go through time.Equal so serialization format differences do not
// matter.
func assertPopulationsEquivalent(t *testing.T, want, got *core.Population) {
	t.Helper()

	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.ChampionID, got.ChampionID)
	assert.Equal(t, want.Domains, got.Domains)
	require.Equal(t, want.IDs(), got.IDs())

	for _, id := range want.IDs() {
		w := want.Candidates[id]
		g := got.Candidates[id]
		assert.Equal(t, w.Name, g.Name, "name of %s", id)
		assert.Equal(t, w.Template, g.Template, "template of %s", id)
		assert.Equal(t, w.Weight, g.Weight, "weight of %s", id)
		assert.Equal(t, w.Generation, g.Generation, "generation of %s", id)
		assert.Equal(t, w.Parents, g.Parents, "parents of %s", id)
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt), "created time of %s", id)

		require.Equal(t, len(w.Performance), len(g.Performance), "history length of %s", id)
		for i := range w.Performance {
			assert.Equal(t, w.Performance[i].Iteration, g.Performance[i].Iteration)
			assert.Equal(t, w.Performance[i].Score, g.Performance[i].Score)
			assert.True(t, w.Performance[i].Timestamp.Equal(g.Performance[i].Timestamp))
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewFileStore(path)
	ctx := context.Background()

	want := samplePopulation(t)
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertPopulationsEquivalent(t, want, got)
}

func TestFileStoreLoadMissing(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	_, err := s.Load(context.Background())
	assert.Equal(t, errors.ResourceNotFound, errors.Code(err))
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "registry.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		_, err := NewFileStore(path).Load(context.Background())
		assert.Equal(t, errors.StoreCorrupt, errors.Code(err))
	})

	t.Run("dangling global prompt", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "registry.json")
		doc := `{
  "version": "1.0",
  "templates": [
    {"id": "x", "name": "n", "template": "t", "weight": 0.5, "generation": 0,
     "created": "2025-01-01T00:00:00Z", "performance": []}
  ],
  "global_prompt": "missing"
}`
		require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

		_, err := NewFileStore(path).Load(context.Background())
		assert.Equal(t, errors.StoreCorrupt, errors.Code(err))
	})

	t.Run("duplicate template ids", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "registry.json")
		doc := `{
  "version": "1.0",
  "templates": [
    {"id": "x", "name": "n", "template": "t", "weight": 0.5, "generation": 0,
     "created": "2025-01-01T00:00:00Z", "performance": []},
    {"id": "x", "name": "n2", "template": "t2", "weight": 0.4, "generation": 0,
     "created": "2025-01-01T00:00:00Z", "performance": []}
  ],
  "global_prompt": "x"
}`
		require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

		_, err := NewFileStore(path).Load(context.Background())
		assert.Equal(t, errors.StoreCorrupt, errors.Code(err))
	})
}

func TestFileStoreSaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewFileStore(path)
	ctx := context.Background()

	first := samplePopulation(t)
	require.NoError(t, s.Save(ctx, first))

	second := first.Clone()
	second.Candidates["seed-a"].Weight = 0.755
	require.NoError(t, second.Candidates["seed-a"].RecordPerformance(2, 0.9, time.Now().UTC()))
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.755, got.Candidates["seed-a"].Weight)
	assert.Len(t, got.Candidates["seed-a"].Performance, 2)

	// The temp file never outlives a successful save
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreHonorsFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewFileStore(path)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, samplePopulation(t)))

	// A shared holder of the lock file, standing in for a reader in another
	// process. Loads may proceed alongside it.
	reader := flock.New(path + ".lock")
	locked, err := reader.TryRLock()
	require.NoError(t, err)
	require.True(t, locked)

	_, err = s.Load(ctx)
	assert.NoError(t, err)

	// A writer has to wait for the shared lock to clear.
	done := make(chan error, 1)
	go func() { done <- s.Save(ctx, samplePopulation(t)) }()

	select {
	case <-done:
		t.Fatal("save committed while the registry was read-locked")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, reader.Unlock())
	assert.NoError(t, <-done)
}

func TestFileStoreSaveTempFileFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewFileStore(path)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, samplePopulation(t)))

	// A directory squatting on the temp path makes the synced write fail; the
	// committed registry stays intact.
	require.NoError(t, os.Mkdir(path+".tmp", 0755))
	err := s.Save(ctx, samplePopulation(t))
	assert.Equal(t, errors.StoreFailed, errors.Code(err))

	_, err = s.Load(ctx)
	assert.NoError(t, err)
}

func TestFileStoreCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "registry.json")
	s := NewFileStore(path)

	require.NoError(t, s.Save(context.Background(), samplePopulation(t)))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStoreWireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewFileStore(path)
	require.NoError(t, s.Save(context.Background(), samplePopulation(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "1.0", raw["version"])
	assert.Equal(t, "seed-a", raw["global_prompt"])

	templates, ok := raw["templates"].([]interface{})
	require.True(t, ok)
	require.Len(t, templates, 3)

	// Templates are sorted by id for stable diffs
	first, ok := templates[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "child-1", first["id"])
	assert.Equal(t, []interface{}{"seed-a", "seed-b"}, first["parents"])

	seedA, ok := templates[1].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "seed-a", seedA["id"])
	assert.Equal(t, 0.65, seedA["weight"])

	history, ok := seedA["performance"].([]interface{})
	require.True(t, ok)
	require.Len(t, history, 1)
	row, ok := history[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), row["iteration"])
	assert.Equal(t, float64(1), row["score"])
	assert.Contains(t, row, "timestamp")
}

func TestFileStoreRespectsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewFileStore(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Save(ctx, samplePopulation(t))
	assert.Equal(t, errors.Canceled, errors.Code(err))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	_, err = NewFileStore(path).Load(ctx)
	assert.Equal(t, errors.Canceled, errors.Code(err))
}

func TestFileStoreRejectsNilPopulation(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	err := s.Save(context.Background(), nil)
	assert.Equal(t, errors.InvalidInput, errors.Code(err))
}
