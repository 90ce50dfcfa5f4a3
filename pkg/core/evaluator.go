package core

import "context"

// Evaluator is the external scoring oracle. Evaluate scores how well the given
// template performs on one test case and returns a value in [0,1].
//
// Failures are typed: transient kinds (network, timeout, rate limit,
// EvaluationFailed) are tolerated per-case by the iteration pipeline, while
// permanent kinds (InvalidInput) indicate the call itself was malformed.
type Evaluator interface {
	Evaluate(ctx context.Context, template string, tc TestCase) (float64, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, template string, tc TestCase) (float64, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, template string, tc TestCase) (float64, error) {
	return f(ctx, template, tc)
}
