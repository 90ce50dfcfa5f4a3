package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	// Test iteration
	ctxWithIteration := WithIteration(ctx, 12)
	retrievedIteration, ok := GetIteration(ctxWithIteration)
	assert.True(t, ok)
	assert.Equal(t, 12, retrievedIteration)

	// Test candidate ID
	ctxWithCandidate := WithCandidate(ctx, "cand-7")
	retrievedCandidate, ok := GetCandidate(ctxWithCandidate)
	assert.True(t, ok)
	assert.Equal(t, "cand-7", retrievedCandidate)

	// Test invalid context values
	_, ok = GetIteration(ctx)
	assert.False(t, ok)
	_, ok = GetCandidate(ctx)
	assert.False(t, ok)
}
