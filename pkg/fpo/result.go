package fpo

import (
	"github.com/promptpool/fpo/pkg/core"
)

// CandidateScore is the per-candidate outcome of one iteration: every case's
// tagged result, the aggregate that drove the weight update (nil when every
// case failed), and the weight after the iteration.
type CandidateScore struct {
	CandidateID string                   `json:"candidate_id"`
	Outcomes    []core.EvaluationOutcome `json:"-"`
	DomainMeans map[string]float64       `json:"domain_means,omitempty"`
	Aggregate   *float64                 `json:"aggregate,omitempty"`
	Weight      float64                  `json:"weight"`
}

// EvolutionResult describes the candidates created and removed by an
// evolution step.
type EvolutionResult struct {
	Evolved    []string `json:"evolved"`
	Generation int      `json:"generation"`
	Pruned     []string `json:"pruned,omitempty"`
}

// IterationResult is the committed outcome of one optimization iteration.
type IterationResult struct {
	Iteration          int              `json:"iteration"`
	GlobalPrompt       string           `json:"global_prompt"`
	Evaluated          []string         `json:"evaluated"`
	PerCandidateScores []CandidateScore `json:"per_candidate_scores"`
	Evolution          *EvolutionResult `json:"evolution,omitempty"`
}

// Score returns the recorded score entry for a candidate, if present.
func (r *IterationResult) Score(candidateID string) (*CandidateScore, bool) {
	for i := range r.PerCandidateScores {
		if r.PerCandidateScores[i].CandidateID == candidateID {
			return &r.PerCandidateScores[i], true
		}
	}
	return nil, false
}
