package fpo

import (
	"math"
	"time"

	"github.com/promptpool/fpo/pkg/core"
)

// ClampScore forces a raw oracle score into [0,1]. NaN clamps to 0.
func ClampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// EMA computes the exponential-moving-average weight update
// w' = (1-alpha)*w + alpha*score. For weight and score in [0,1] the result
// stays in [0,1].
func EMA(weight, score, alpha float64) float64 {
	return (1-alpha)*weight + alpha*score
}

// Aggregate merges the per-case outcomes of one candidate into the single
// scalar that drives its weight update: the mean of the successful scores.
// Returns false when every case failed.
func Aggregate(outcomes []core.EvaluationOutcome) (float64, bool) {
	sum := 0.0
	n := 0
	for _, o := range outcomes {
		if o.Failed() {
			continue
		}
		sum += o.Score
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// DomainMeans computes the mean successful score per domain tag, for
// observability. The aggregate mean, not these, drives the update.
func DomainMeans(outcomes []core.EvaluationOutcome) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, o := range outcomes {
		if o.Failed() {
			continue
		}
		sums[o.Domain] += o.Score
		counts[o.Domain]++
	}
	if len(counts) == 0 {
		return nil
	}
	means := make(map[string]float64, len(counts))
	for domain, n := range counts {
		means[domain] = sums[domain] / float64(n)
	}
	return means
}

// ApplyUpdate moves the candidate's weight toward the aggregate score and
// appends the performance record for this iteration.
func ApplyUpdate(c *core.PromptCandidate, iteration int, aggregate, alpha float64, at time.Time) error {
	if err := c.RecordPerformance(iteration, aggregate, at); err != nil {
		return err
	}
	c.Weight = EMA(c.Weight, aggregate, alpha)
	return nil
}
