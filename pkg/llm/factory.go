package llm

import (
	"github.com/promptpool/fpo/pkg/core"
	errs "github.com/promptpool/fpo/pkg/errors"
	"github.com/promptpool/fpo/pkg/fpo"
)

// ProviderAnthropic is the only provider currently wired in.
const ProviderAnthropic = "anthropic"

// NewEvaluator creates the scoring oracle for the named provider. An empty
// provider defaults to Anthropic.
func NewEvaluator(provider, apiKey string, opts ...Option) (core.Evaluator, error) {
	switch provider {
	case "", ProviderAnthropic:
		return NewAnthropicEvaluator(apiKey, opts...)
	default:
		return nil, errs.WithFields(
			errs.New(errs.InvalidInput, "unsupported evaluator provider"),
			errs.Fields{"provider": provider})
	}
}

// NewRewriter creates the crossover rewriter for the named provider. An empty
// provider defaults to Anthropic.
func NewRewriter(provider, apiKey string, opts ...Option) (fpo.Rewriter, error) {
	switch provider {
	case "", ProviderAnthropic:
		return NewAnthropicRewriter(apiKey, opts...)
	default:
		return nil, errs.WithFields(
			errs.New(errs.InvalidInput, "unsupported rewriter provider"),
			errs.Fields{"provider": provider})
	}
}
