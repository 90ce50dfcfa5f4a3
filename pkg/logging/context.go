package logging

import "context"

type contextKey int

const (
	iterationKey contextKey = iota
	candidateKey
)

// WithIteration annotates ctx with the current optimization iteration.
// Log entries produced under the returned context carry the iteration number.
func WithIteration(ctx context.Context, iteration int) context.Context {
	return context.WithValue(ctx, iterationKey, iteration)
}

// GetIteration extracts the optimization iteration from ctx.
func GetIteration(ctx context.Context) (int, bool) {
	it, ok := ctx.Value(iterationKey).(int)
	return it, ok
}

// WithCandidate annotates ctx with the prompt candidate currently being worked on.
func WithCandidate(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, candidateKey, id)
}

// GetCandidate extracts the candidate ID from ctx.
func GetCandidate(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(candidateKey).(string)
	return id, ok
}
