package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/promptpool/fpo/pkg/core"
	"github.com/promptpool/fpo/pkg/logging"
)

// CachedEvaluator decorates an Evaluator with score memoization. Cache reads
// and writes are best-effort: a cache failure never fails the evaluation, it
// just falls through to the oracle.
type CachedEvaluator struct {
	inner core.Evaluator
	cache Cache
	keys  *KeyGenerator
	ttl   time.Duration
}

var _ core.Evaluator = (*CachedEvaluator)(nil)

// NewCachedEvaluator wraps inner with the given cache. A zero ttl leaves
// expiry to the cache's own default.
func NewCachedEvaluator(inner core.Evaluator, cache Cache, ttl time.Duration) *CachedEvaluator {
	return &CachedEvaluator{
		inner: inner,
		cache: cache,
		keys:  NewKeyGenerator(""),
		ttl:   ttl,
	}
}

// Evaluate returns the memoized score for this template/case content when one
// exists, otherwise asks the inner evaluator and stores the result. Errors
// from the inner evaluator are never cached.
func (e *CachedEvaluator) Evaluate(ctx context.Context, template string, tc core.TestCase) (float64, error) {
	key := e.keys.ScoreKey(template, tc)

	if data, found, err := e.cache.Get(ctx, key); found && err == nil {
		if score, err := strconv.ParseFloat(string(data), 64); err == nil {
			logging.GetLogger().Debug(ctx, "Score cache hit for case %s", tc.ID)
			return score, nil
		}
	}

	score, err := e.inner.Evaluate(ctx, template, tc)
	if err != nil {
		return 0, err
	}

	_ = e.cache.Set(ctx, key, strconv.AppendFloat(nil, score, 'g', -1, 64), e.ttl)
	return score, nil
}

// Stats exposes the underlying cache counters.
func (e *CachedEvaluator) Stats() CacheStats {
	return e.cache.Stats()
}

// Close releases the underlying cache.
func (e *CachedEvaluator) Close() error {
	return e.cache.Close()
}
