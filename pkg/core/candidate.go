package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/promptpool/fpo/pkg/errors"
)

// PerformanceRecord captures one scored evaluation of a candidate.
type PerformanceRecord struct {
	Iteration int       `json:"iteration"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// PromptCandidate is one template variant in the optimized population, carrying
// its fitness weight and lineage. IDs are immutable once created and never
// reused.
type PromptCandidate struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Template    string              `json:"template"`
	Weight      float64             `json:"weight"`
	Generation  int                 `json:"generation"`
	Parents     []string            `json:"parents,omitempty"`
	CreatedAt   time.Time           `json:"created"`
	Performance []PerformanceRecord `json:"performance"`
}

// NewSeedCandidate creates a generation-0 candidate with a fresh unique ID.
// Seeds start at weight 0.5: an uninformative prior halfway between failing
// and perfect, so the first evaluations move the weight in either direction.
func NewSeedCandidate(name, template string) *PromptCandidate {
	return &PromptCandidate{
		ID:          uuid.New().String(),
		Name:        name,
		Template:    template,
		Weight:      0.5,
		Generation:  0,
		Parents:     nil,
		CreatedAt:   time.Now(),
		Performance: []PerformanceRecord{},
	}
}

// IsSeed reports whether the candidate is a generation-0 seed.
func (c *PromptCandidate) IsSeed() bool {
	return len(c.Parents) == 0
}

// Clone returns a deep copy of the candidate.
func (c *PromptCandidate) Clone() *PromptCandidate {
	clone := *c
	if c.Parents != nil {
		clone.Parents = make([]string, len(c.Parents))
		copy(clone.Parents, c.Parents)
	}
	if c.Performance != nil {
		clone.Performance = make([]PerformanceRecord, len(c.Performance))
		copy(clone.Performance, c.Performance)
	}
	return &clone
}

// RecordPerformance appends a scored evaluation to the candidate's history.
// History is append-only and strictly increasing by iteration.
func (c *PromptCandidate) RecordPerformance(iteration int, score float64, at time.Time) error {
	if n := len(c.Performance); n > 0 && c.Performance[n-1].Iteration >= iteration {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "performance history must be strictly increasing by iteration"),
			errors.Fields{"candidate": c.ID, "iteration": iteration, "last": c.Performance[n-1].Iteration})
	}
	c.Performance = append(c.Performance, PerformanceRecord{
		Iteration: iteration,
		Score:     score,
		Timestamp: at,
	})
	return nil
}

// LastScore returns the most recent recorded score, if any.
func (c *PromptCandidate) LastScore() (float64, bool) {
	if len(c.Performance) == 0 {
		return 0, false
	}
	return c.Performance[len(c.Performance)-1].Score, true
}
