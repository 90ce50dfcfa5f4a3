// Package store provides the persistence backends for the candidate registry:
// an atomic JSON file store and a SQLite store. Both write the population as a
// single unit, so a crash mid-save never leaves a partially updated registry
// behind.
package store

import (
	"sort"

	"github.com/promptpool/fpo/pkg/core"
	"github.com/promptpool/fpo/pkg/errors"
)

// registryDocument is the wire schema of a committed population. Templates
// are stored as a flat array sorted by id, and the champion travels as the
// global prompt pointer.
type registryDocument struct {
	Version      string                  `json:"version"`
	Templates    []*core.PromptCandidate `json:"templates"`
	Domains      []string                `json:"domains,omitempty"`
	GlobalPrompt string                  `json:"global_prompt"`
}

func encodeRegistry(pop *core.Population) *registryDocument {
	doc := &registryDocument{
		Version:      pop.Version,
		Templates:    make([]*core.PromptCandidate, 0, pop.Size()),
		Domains:      pop.Domains,
		GlobalPrompt: pop.ChampionID,
	}
	for _, id := range pop.IDs() {
		doc.Templates = append(doc.Templates, pop.Candidates[id])
	}
	sort.Slice(doc.Templates, func(i, j int) bool {
		return doc.Templates[i].ID < doc.Templates[j].ID
	})
	return doc
}

// decodeRegistry rebuilds a population from its wire form and validates every
// structural invariant. Any violation is corruption from the loader's point
// of view.
func decodeRegistry(doc *registryDocument) (*core.Population, error) {
	pop := core.NewPopulation(doc.Version, doc.Domains)
	pop.ChampionID = doc.GlobalPrompt

	for _, c := range doc.Templates {
		if err := pop.Add(c); err != nil {
			return nil, errors.Wrap(err, errors.StoreCorrupt, "registry holds a duplicate or unusable template")
		}
	}
	if err := pop.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.StoreCorrupt, "registry violates a population invariant")
	}
	return pop, nil
}
