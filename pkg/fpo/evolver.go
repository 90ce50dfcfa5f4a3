package fpo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/promptpool/fpo/pkg/core"
	"github.com/promptpool/fpo/pkg/errors"
)

// Evolver grows the population by crossover between the two best candidates
// and keeps its size inside the configured bound.
type Evolver struct {
	config    *Config
	crossover *CrossoverOperator
}

// NewEvolver creates an evolver with the given configuration and operator.
func NewEvolver(config *Config, crossover *CrossoverOperator) *Evolver {
	return &Evolver{config: config, crossover: crossover}
}

// ShouldEvolve reports whether evolution fires for the given iteration:
// the iteration lands on the interval, evolution is enabled, and at least two
// candidates exist to act as parents.
func (e *Evolver) ShouldEvolve(iteration int, pop *core.Population, enabled bool, interval int) bool {
	if !enabled || iteration <= 0 || pop.Size() < 2 {
		return false
	}
	return iteration%interval == 0
}

// Evolve creates one offspring from the two highest-ranked candidates,
// inserts it, and prunes back to the population bound. Returns the new
// candidate and the ids removed by pruning.
func (e *Evolver) Evolve(ctx context.Context, pop *core.Population) (*core.PromptCandidate, []string, error) {
	ranked := RankedIDs(pop)
	if len(ranked) < 2 {
		return nil, nil, errors.New(errors.InvalidInput, "evolution requires at least two candidates")
	}

	parentA := mustCandidate(pop, ranked[0])
	parentB := mustCandidate(pop, ranked[1])

	template := e.crossover.Crossover(ctx, parentA, parentB)
	template = e.crossover.MaybeMutate(template, e.config.MutationRate)

	generation := parentA.Generation
	if parentB.Generation > generation {
		generation = parentB.Generation
	}
	generation++

	child := &core.PromptCandidate{
		ID:          uuid.New().String(),
		Name:        fmt.Sprintf("%s x %s", parentA.Name, parentB.Name),
		Template:    template,
		Weight:      (parentA.Weight + parentB.Weight) / 2 * e.config.DiscountFactor,
		Generation:  generation,
		Parents:     []string{parentA.ID, parentB.ID},
		CreatedAt:   time.Now(),
		Performance: []core.PerformanceRecord{},
	}

	if err := pop.Add(child); err != nil {
		return nil, nil, err
	}

	removed := e.prune(pop)
	return child, removed, nil
}

// prune removes the worst candidates until the population is back inside
// MaxPopulation. The current champion, generation-0 seeds, and candidates
// still referenced as parents by survivors are never removed; when only
// protected candidates remain the bound may be exceeded.
func (e *Evolver) prune(pop *core.Population) []string {
	var removed []string

	for pop.Size() > e.config.MaxPopulation {
		// Ids still referenced as parents cannot go without dangling lineage
		refs := make(map[string]int)
		for _, c := range pop.Candidates {
			for _, pid := range c.Parents {
				refs[pid]++
			}
		}

		// Worst-first: exact inverse of champion order
		ids := pop.IDs()
		sort.SliceStable(ids, func(i, j int) bool {
			return betterCandidate(pop.Candidates[ids[j]], pop.Candidates[ids[i]])
		})

		evicted := false
		for _, id := range ids {
			c := pop.Candidates[id]
			if id == pop.ChampionID || c.IsSeed() || refs[id] > 0 {
				continue
			}
			delete(pop.Candidates, id)
			removed = append(removed, id)
			evicted = true
			break
		}
		if !evicted {
			break
		}
	}

	return removed
}
