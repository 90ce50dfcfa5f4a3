package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/promptpool/fpo/pkg/fpo"
)

func TestFormatStatus(t *testing.T) {
	score := 0.85
	status := &fpo.Status{
		GlobalPrompt:   "cand-a",
		PopulationSize: 2,
		MaxGeneration:  1,
		Domains:        []string{"news", "sports"},
		Templates: []fpo.CandidateStatus{
			{ID: "cand-a", Name: "concise", Weight: 0.8, Evaluations: 3, LastScore: &score},
			{ID: "cand-c", Weight: 0.4, Generation: 1, Parents: []string{"cand-a", "cand-b"}, Evaluations: 0},
		},
	}

	out := FormatStatus(status, "registry.json")

	assert.Contains(t, out, "Prompt Registry")
	assert.Contains(t, out, "registry.json")
	assert.Contains(t, out, "cand-a")
	assert.Contains(t, out, "concise")
	assert.Contains(t, out, "* ")
	assert.Contains(t, out, "0.8000")
	assert.Contains(t, out, "Last score:")
	assert.Contains(t, out, "0.8500")
	assert.Contains(t, out, "Parents:")
	assert.Contains(t, out, "cand-b")
	assert.Contains(t, out, "news, sports")
}

func TestFormatStatusUnnamedCandidateFallsBackToID(t *testing.T) {
	status := &fpo.Status{
		GlobalPrompt:   "cand-x",
		PopulationSize: 1,
		Templates:      []fpo.CandidateStatus{{ID: "cand-x", Weight: 0.5}},
	}

	out := FormatStatus(status, "registry.json")
	assert.Contains(t, out, "cand-x (cand-x)")
}

func TestFormatIterationResult(t *testing.T) {
	aggregate := 0.9
	result := &fpo.IterationResult{
		Iteration:    4,
		GlobalPrompt: "cand-a",
		Evaluated:    []string{"cand-a", "cand-b"},
		PerCandidateScores: []fpo.CandidateScore{
			{CandidateID: "cand-a", Aggregate: &aggregate, Weight: 0.77},
			{CandidateID: "cand-b", Weight: 0.3},
		},
		Evolution: &fpo.EvolutionResult{
			Evolved:    []string{"cand-child"},
			Generation: 2,
			Pruned:     []string{"cand-old"},
		},
	}

	out := FormatIterationResult(result)

	assert.Contains(t, out, "Iteration 4 committed")
	assert.Contains(t, out, "0.9000")
	assert.Contains(t, out, "0.7700")
	assert.Contains(t, out, "all cases failed, weight unchanged")
	assert.Contains(t, out, "cand-child")
	assert.Contains(t, out, "generation 2")
	assert.Contains(t, out, "Pruned:")
	assert.Contains(t, out, "cand-old")
	assert.Contains(t, out, "Champion:")
}

func TestFormatIterationResultWithoutEvolution(t *testing.T) {
	result := &fpo.IterationResult{Iteration: 1, GlobalPrompt: "cand-a"}

	out := FormatIterationResult(result)
	assert.Contains(t, out, "Iteration 1 committed")
	assert.NotContains(t, out, "Evolved:")
	assert.NotContains(t, out, "Pruned:")
}
