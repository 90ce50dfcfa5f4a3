package core

import (
	"math"
	"sort"

	"github.com/promptpool/fpo/pkg/errors"
)

// Population is the full candidate registry: every template variant keyed by
// id, the domain tags evaluation cases are drawn from, and the current
// champion. It is mutated at most once per committed iteration and persisted
// as a whole.
type Population struct {
	Version    string
	Candidates map[string]*PromptCandidate
	Domains    []string
	ChampionID string
}

// NewPopulation creates an empty population at the given schema version.
func NewPopulation(version string, domains []string) *Population {
	return &Population{
		Version:    version,
		Candidates: make(map[string]*PromptCandidate),
		Domains:    domains,
	}
}

// Candidate looks up a candidate by id.
func (p *Population) Candidate(id string) (*PromptCandidate, bool) {
	c, ok := p.Candidates[id]
	return c, ok
}

// Add inserts a candidate. IDs are never reused, so inserting a duplicate id
// is an error.
func (p *Population) Add(c *PromptCandidate) error {
	if c == nil || c.ID == "" {
		return errors.New(errors.InvalidInput, "candidate must have an id")
	}
	if _, exists := p.Candidates[c.ID]; exists {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "candidate id already present"),
			errors.Fields{"id": c.ID})
	}
	if p.Candidates == nil {
		p.Candidates = make(map[string]*PromptCandidate)
	}
	p.Candidates[c.ID] = c
	return nil
}

// Size returns the number of candidates.
func (p *Population) Size() int {
	return len(p.Candidates)
}

// IDs returns all candidate ids in ascending order, for deterministic
// iteration over the map.
func (p *Population) IDs() []string {
	ids := make([]string, 0, len(p.Candidates))
	for id := range p.Candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MaxGeneration returns the deepest lineage generation present.
func (p *Population) MaxGeneration() int {
	max := 0
	for _, c := range p.Candidates {
		if c.Generation > max {
			max = c.Generation
		}
	}
	return max
}

// LastIteration returns the highest iteration recorded in any candidate's
// performance history, 0 when nothing has been scored yet.
func (p *Population) LastIteration() int {
	last := 0
	for _, c := range p.Candidates {
		if n := len(c.Performance); n > 0 && c.Performance[n-1].Iteration > last {
			last = c.Performance[n-1].Iteration
		}
	}
	return last
}

// Clone returns a deep copy of the population.
func (p *Population) Clone() *Population {
	clone := &Population{
		Version:    p.Version,
		Candidates: make(map[string]*PromptCandidate, len(p.Candidates)),
		ChampionID: p.ChampionID,
	}
	if p.Domains != nil {
		clone.Domains = make([]string, len(p.Domains))
		copy(clone.Domains, p.Domains)
	}
	for id, c := range p.Candidates {
		clone.Candidates[id] = c.Clone()
	}
	return clone
}

// Validate checks every structural invariant of the population: the champion
// resolves, weights are finite and non-negative, lineage is consistent
// (0 or 2 distinct existing parents, generation = deepest parent + 1, seeds at
// generation 0), performance history strictly increasing, templates non-empty.
// Load boundaries surface violations as StoreCorrupt.
func (p *Population) Validate() error {
	if len(p.Candidates) == 0 {
		return errors.New(errors.ValidationFailed, "population has no candidates")
	}

	if p.ChampionID == "" {
		return errors.New(errors.ValidationFailed, "population has no champion")
	}
	if _, ok := p.Candidates[p.ChampionID]; !ok {
		return errors.WithFields(
			errors.New(errors.ValidationFailed, "champion id does not resolve"),
			errors.Fields{"champion": p.ChampionID})
	}

	for id, c := range p.Candidates {
		if c == nil {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "nil candidate entry"),
				errors.Fields{"id": id})
		}
		if c.ID != id {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "candidate id does not match registry key"),
				errors.Fields{"key": id, "id": c.ID})
		}
		if c.Template == "" {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "candidate has empty template"),
				errors.Fields{"id": id})
		}
		if c.Weight < 0 || math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "candidate weight must be finite and non-negative"),
				errors.Fields{"id": id, "weight": c.Weight})
		}

		if err := p.validateLineage(c); err != nil {
			return err
		}

		for i := 1; i < len(c.Performance); i++ {
			if c.Performance[i].Iteration <= c.Performance[i-1].Iteration {
				return errors.WithFields(
					errors.New(errors.ValidationFailed, "performance history not strictly increasing"),
					errors.Fields{"id": id, "index": i})
			}
		}
	}

	return nil
}

func (p *Population) validateLineage(c *PromptCandidate) error {
	if len(c.Parents) == 0 {
		if c.Generation != 0 {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "seed candidate must be generation 0"),
				errors.Fields{"id": c.ID, "generation": c.Generation})
		}
		return nil
	}

	if len(c.Parents) != 2 {
		return errors.WithFields(
			errors.New(errors.ValidationFailed, "parents must be empty or exactly two ids"),
			errors.Fields{"id": c.ID, "parents": len(c.Parents)})
	}
	if c.Parents[0] == c.Parents[1] {
		return errors.WithFields(
			errors.New(errors.ValidationFailed, "parent ids must be distinct"),
			errors.Fields{"id": c.ID, "parent": c.Parents[0]})
	}

	maxParentGen := 0
	for _, pid := range c.Parents {
		parent, ok := p.Candidates[pid]
		if !ok {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "parent id does not resolve"),
				errors.Fields{"id": c.ID, "parent": pid})
		}
		if parent.Generation > maxParentGen {
			maxParentGen = parent.Generation
		}
	}
	if c.Generation != maxParentGen+1 {
		return errors.WithFields(
			errors.New(errors.ValidationFailed, "generation must be one past the deepest parent"),
			errors.Fields{"id": c.ID, "generation": c.Generation, "expected": maxParentGen + 1})
	}

	return nil
}
