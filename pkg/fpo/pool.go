package fpo

import (
	"sort"

	"github.com/promptpool/fpo/pkg/core"
)

// betterCandidate reports whether a ranks ahead of b in champion order:
// higher weight, then higher generation, then lexicographically smaller id.
// The ordering is total, so ranking a population is fully deterministic.
func betterCandidate(a, b *core.PromptCandidate) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	if a.Generation != b.Generation {
		return a.Generation > b.Generation
	}
	return a.ID < b.ID
}

// RankedIDs returns every candidate id in champion order.
func RankedIDs(pop *core.Population) []string {
	ids := pop.IDs()
	sort.SliceStable(ids, func(i, j int) bool {
		return betterCandidate(pop.Candidates[ids[i]], pop.Candidates[ids[j]])
	})
	return ids
}

// PickChampion returns the id of the best candidate in the population, or ""
// when the population is empty. Same population state always yields the same
// champion.
func PickChampion(pop *core.Population) string {
	var best *core.PromptCandidate
	for _, id := range pop.IDs() {
		c := pop.Candidates[id]
		if best == nil || betterCandidate(c, best) {
			best = c
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

// SelectForEvaluation returns explicitID when it names an existing candidate,
// otherwise the current champion.
func SelectForEvaluation(pop *core.Population, explicitID string) string {
	if explicitID != "" {
		if _, ok := pop.Candidates[explicitID]; ok {
			return explicitID
		}
	}
	return PickChampion(pop)
}
