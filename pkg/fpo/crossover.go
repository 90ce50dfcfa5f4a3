package fpo

import (
	"context"
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/promptpool/fpo/pkg/core"
)

// Rewriter blends two parent templates into offspring text with model
// assistance. Implementations are optional: any failure makes the operator
// fall back to structural splicing.
type Rewriter interface {
	Blend(ctx context.Context, parentA, parentB string) (string, error)
}

var (
	mutationAdverbs = []string{"carefully", "thoroughly", "precisely", "clearly", "effectively"}

	mutationSynonyms = map[string][]string{
		"provide":   {"give", "supply", "deliver", "present"},
		"analyze":   {"examine", "study", "evaluate", "assess"},
		"create":    {"generate", "produce", "develop", "build"},
		"explain":   {"describe", "clarify", "elaborate", "detail"},
		"summarize": {"condense", "distill", "recap", "outline"},
	}

	mutationQualifiers = []string{" with attention to detail", " ensuring accuracy", " step by step", " comprehensively"}
)

// CrossoverOperator produces offspring template text from two parents.
type CrossoverOperator struct {
	rng      *rand.Rand
	rewriter Rewriter
}

// NewCrossoverOperator creates an operator around the given rng. rewriter may
// be nil, in which case only structural splicing is used.
func NewCrossoverOperator(rng *rand.Rand, rewriter Rewriter) *CrossoverOperator {
	return &CrossoverOperator{rng: rng, rewriter: rewriter}
}

// Crossover blends the templates of both parents into new offspring text.
// The result is non-empty, derived from both parents, and guarded against
// being a verbatim copy of either.
func (o *CrossoverOperator) Crossover(ctx context.Context, parentA, parentB *core.PromptCandidate) string {
	if o.rewriter != nil {
		if blended, err := o.rewriter.Blend(ctx, parentA.Template, parentB.Template); err == nil {
			blended = strings.TrimSpace(blended)
			if blended != "" && canonical(blended) != canonical(parentA.Template) && canonical(blended) != canonical(parentB.Template) {
				return blended
			}
		}
	}

	return o.spliceCrossover(parentA.Template, parentB.Template)
}

// spliceCrossover mixes the templates structurally: an rng-chosen front
// section of parent A followed by a back section of parent B.
func (o *CrossoverOperator) spliceCrossover(templateA, templateB string) string {
	wordsA := strings.Fields(templateA)
	wordsB := strings.Fields(templateB)

	splitA := len(wordsA)
	if len(wordsA) > 1 {
		splitA = 1 + o.rng.Intn(len(wordsA)-1)
	}
	splitB := 0
	if len(wordsB) > 1 {
		splitB = o.rng.Intn(len(wordsB))
	}

	words := make([]string, 0, splitA+len(wordsB)-splitB)
	words = append(words, wordsA[:splitA]...)
	words = append(words, wordsB[splitB:]...)
	offspring := strings.Join(words, " ")

	// Verbatim offspring would defeat the blend, so perturb it
	if canonical(offspring) == canonical(templateA) || canonical(offspring) == canonical(templateB) {
		offspring += mutationQualifiers[o.rng.Intn(len(mutationQualifiers))]
	}
	return offspring
}

// MaybeMutate applies a stochastic word-level perturbation with probability
// rate: an adverb prefix, a synonym substitution, or a qualifier suffix.
func (o *CrossoverOperator) MaybeMutate(template string, rate float64) string {
	if o.rng.Float64() > rate {
		return template // No mutation
	}

	words := strings.Fields(template)
	if len(words) == 0 {
		return template
	}

	switch o.rng.Intn(3) {
	case 0: // Add adverb
		return mutationAdverbs[o.rng.Intn(len(mutationAdverbs))] + " " + template
	case 1: // Replace a word with a synonym
		mutated := make([]string, len(words))
		copy(mutated, words)
		for i, word := range words {
			if syns, exists := mutationSynonyms[strings.ToLower(word)]; exists && o.rng.Float64() < 0.3 {
				mutated[i] = syns[o.rng.Intn(len(syns))]
				break
			}
		}
		return strings.Join(mutated, " ")
	default: // Add qualifying phrase
		return template + mutationQualifiers[o.rng.Intn(len(mutationQualifiers))]
	}
}

// canonical reduces a template to its comparison form: NFC-normalized,
// case-folded, whitespace-collapsed. Offspring/parent identity checks use
// this so trivial casing or spacing differences do not count as "new" text.
func canonical(s string) string {
	folded := cases.Fold().String(norm.NFC.String(s))
	return strings.Join(strings.Fields(folded), " ")
}
