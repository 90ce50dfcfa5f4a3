// Package seedfile loads the initial candidate population from a YAML or
// JSON seed document.
package seedfile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/promptpool/fpo/pkg/core"
	"github.com/promptpool/fpo/pkg/fpo"
)

const defaultWeight = 0.5

// Document is the on-disk seed format. YAML is the native form; JSON parses
// through the same path.
type Document struct {
	Version   string     `yaml:"version" json:"version"`
	Domains   []string   `yaml:"domains" json:"domains"`
	Templates []Template `yaml:"templates" json:"templates"`
}

// Template is one seed candidate. ID, Name and Weight are optional: a missing
// id gets a generated UUID, a missing name a positional one, and a missing
// weight defaults to 0.5.
type Template struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Template string   `yaml:"template" json:"template"`
	Weight   *float64 `yaml:"weight" json:"weight"`
}

// Load reads a seed document and builds the initial population from it. The
// champion is picked deterministically from the seeded weights.
func Load(path string) (*core.Population, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	if len(doc.Templates) == 0 {
		return nil, fmt.Errorf("seed file %s holds no templates", path)
	}

	version := doc.Version
	if version == "" {
		version = "1.0"
	}

	pop := core.NewPopulation(version, doc.Domains)
	now := time.Now().UTC()
	for i, tpl := range doc.Templates {
		if strings.TrimSpace(tpl.Template) == "" {
			return nil, fmt.Errorf("seed template %d has no template text", i+1)
		}

		candidate := &core.PromptCandidate{
			ID:        tpl.ID,
			Name:      tpl.Name,
			Template:  tpl.Template,
			Weight:    defaultWeight,
			CreatedAt: now,
		}
		if candidate.ID == "" {
			candidate.ID = uuid.NewString()
		}
		if candidate.Name == "" {
			candidate.Name = fmt.Sprintf("seed-%d", i+1)
		}
		if tpl.Weight != nil {
			candidate.Weight = *tpl.Weight
		}

		if err := pop.Add(candidate); err != nil {
			return nil, err
		}
	}

	pop.ChampionID = fpo.PickChampion(pop)
	if err := pop.Validate(); err != nil {
		return nil, err
	}
	return pop, nil
}
