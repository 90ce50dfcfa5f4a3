package fpo

import (
	"context"

	"github.com/promptpool/fpo/pkg/core"
)

// CandidateStatus is one row of the status projection.
type CandidateStatus struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Weight      float64  `json:"weight"`
	Generation  int      `json:"generation"`
	Parents     []string `json:"parents,omitempty"`
	Evaluations int      `json:"evaluations"`
	LastScore   *float64 `json:"last_score,omitempty"`
}

// Status is a read-only projection of the committed population, rows sorted
// by descending weight with the champion tie-break.
type Status struct {
	GlobalPrompt   string            `json:"global_prompt"`
	PopulationSize int               `json:"population_size"`
	MaxGeneration  int               `json:"max_generation"`
	Domains        []string          `json:"domains,omitempty"`
	Templates      []CandidateStatus `json:"templates"`
}

// NewStatus projects a population into its status view without mutating it.
func NewStatus(pop *core.Population) *Status {
	st := &Status{
		GlobalPrompt:   pop.ChampionID,
		PopulationSize: pop.Size(),
		MaxGeneration:  pop.MaxGeneration(),
		Domains:        pop.Domains,
		Templates:      make([]CandidateStatus, 0, pop.Size()),
	}
	if st.GlobalPrompt == "" {
		st.GlobalPrompt = PickChampion(pop)
	}

	for _, id := range RankedIDs(pop) {
		c := pop.Candidates[id]
		row := CandidateStatus{
			ID:          c.ID,
			Name:        c.Name,
			Weight:      c.Weight,
			Generation:  c.Generation,
			Parents:     c.Parents,
			Evaluations: len(c.Performance),
		}
		if score, ok := c.LastScore(); ok {
			s := score
			row.LastScore = &s
		}
		st.Templates = append(st.Templates, row)
	}

	return st
}

// Status projects the committed population without mutating anything.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	pop, err := e.loadPopulation(ctx)
	if err != nil {
		return nil, err
	}
	return NewStatus(pop), nil
}
