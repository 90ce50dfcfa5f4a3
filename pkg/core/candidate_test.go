package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptpool/fpo/pkg/errors"
)

func TestNewSeedCandidate(t *testing.T) {
	c := NewSeedCandidate("base", "Summarize the following article.")

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "base", c.Name)
	assert.Equal(t, "Summarize the following article.", c.Template)
	assert.Equal(t, 0.5, c.Weight)
	assert.Equal(t, 0, c.Generation)
	assert.Empty(t, c.Parents)
	assert.True(t, c.IsSeed())
	assert.Empty(t, c.Performance)
	assert.False(t, c.CreatedAt.IsZero())

	// Fresh IDs every time
	other := NewSeedCandidate("base", "Summarize the following article.")
	assert.NotEqual(t, c.ID, other.ID)
}

func TestCandidateClone(t *testing.T) {
	orig := &PromptCandidate{
		ID:         "c1",
		Name:       "news-v1",
		Template:   "Rate this article.",
		Weight:     0.7,
		Generation: 1,
		Parents:    []string{"a", "b"},
		CreatedAt:  time.Now(),
		Performance: []PerformanceRecord{
			{Iteration: 1, Score: 0.6, Timestamp: time.Now()},
		},
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)

	// Mutating the clone must not touch the original
	clone.Parents[0] = "z"
	clone.Performance[0].Score = 0.0
	clone.Weight = 0.1

	assert.Equal(t, "a", orig.Parents[0])
	assert.Equal(t, 0.6, orig.Performance[0].Score)
	assert.Equal(t, 0.7, orig.Weight)
}

func TestRecordPerformance(t *testing.T) {
	c := NewSeedCandidate("base", "template")

	require.NoError(t, c.RecordPerformance(1, 0.8, time.Now()))
	require.NoError(t, c.RecordPerformance(2, 0.9, time.Now()))

	assert.Len(t, c.Performance, 2)
	assert.Equal(t, 1, c.Performance[0].Iteration)
	assert.Equal(t, 2, c.Performance[1].Iteration)

	// Same or earlier iteration is rejected
	err := c.RecordPerformance(2, 0.5, time.Now())
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.Code(err))
	assert.Len(t, c.Performance, 2)
}

func TestLastScore(t *testing.T) {
	c := NewSeedCandidate("base", "template")

	_, ok := c.LastScore()
	assert.False(t, ok)

	require.NoError(t, c.RecordPerformance(1, 0.4, time.Now()))
	require.NoError(t, c.RecordPerformance(2, 0.9, time.Now()))

	score, ok := c.LastScore()
	assert.True(t, ok)
	assert.Equal(t, 0.9, score)
}

func TestEvaluationOutcomeFailed(t *testing.T) {
	ok := EvaluationOutcome{CaseID: "t1", Score: 0.5}
	failed := EvaluationOutcome{CaseID: "t2", Err: errors.New(errors.EvaluationFailed, "backend down")}

	assert.False(t, ok.Failed())
	assert.True(t, failed.Failed())
}
