package fpo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptpool/fpo/pkg/core"
)

func buildPopulation(t *testing.T, candidates ...*core.PromptCandidate) *core.Population {
	t.Helper()

	pop := core.NewPopulation("1.0", []string{"news"})
	for _, c := range candidates {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}
		require.NoError(t, pop.Add(c))
	}
	pop.ChampionID = PickChampion(pop)
	return pop
}

func TestPickChampion(t *testing.T) {
	tests := []struct {
		name       string
		candidates []*core.PromptCandidate
		want       string
	}{
		{
			name: "highest weight wins",
			candidates: []*core.PromptCandidate{
				{ID: "a", Template: "ta", Weight: 0.4},
				{ID: "b", Template: "tb", Weight: 0.9},
				{ID: "c", Template: "tc", Weight: 0.6},
			},
			want: "b",
		},
		{
			name: "weight tie broken by higher generation",
			candidates: []*core.PromptCandidate{
				{ID: "a", Template: "ta", Weight: 0.5},
				{ID: "b", Template: "tb", Weight: 0.5},
				{ID: "c", Template: "tc", Weight: 0.5, Generation: 2, Parents: []string{"a", "b"}},
			},
			want: "c",
		},
		{
			name: "full tie broken by smaller id",
			candidates: []*core.PromptCandidate{
				{ID: "zeta", Template: "tz", Weight: 0.5},
				{ID: "alpha", Template: "ta", Weight: 0.5},
			},
			want: "alpha",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pop := core.NewPopulation("1.0", nil)
			for _, c := range tt.candidates {
				require.NoError(t, pop.Add(c))
			}
			assert.Equal(t, tt.want, PickChampion(pop))

			// Pure function of state: repeated calls agree
			assert.Equal(t, tt.want, PickChampion(pop))
		})
	}

	t.Run("empty population", func(t *testing.T) {
		assert.Equal(t, "", PickChampion(core.NewPopulation("1.0", nil)))
	})
}

func TestSelectForEvaluation(t *testing.T) {
	pop := buildPopulation(t,
		&core.PromptCandidate{ID: "a", Template: "ta", Weight: 0.9},
		&core.PromptCandidate{ID: "b", Template: "tb", Weight: 0.2},
	)

	assert.Equal(t, "b", SelectForEvaluation(pop, "b"), "explicit id is honored")
	assert.Equal(t, "a", SelectForEvaluation(pop, ""), "no explicit id falls back to champion")
	assert.Equal(t, "a", SelectForEvaluation(pop, "ghost"), "unknown id falls back to champion")
}

func TestRankedIDs(t *testing.T) {
	pop := buildPopulation(t,
		&core.PromptCandidate{ID: "low", Template: "tl", Weight: 0.1},
		&core.PromptCandidate{ID: "high", Template: "th", Weight: 0.9},
		&core.PromptCandidate{ID: "mid-b", Template: "tm", Weight: 0.5},
		&core.PromptCandidate{ID: "mid-a", Template: "tm2", Weight: 0.5},
	)

	assert.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, RankedIDs(pop))
}
