package fpo

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/promptpool/fpo/pkg/core"
	"github.com/promptpool/fpo/pkg/errors"
	"github.com/promptpool/fpo/pkg/logging"
)

// Engine orchestrates optimization iterations against one population: it owns
// the load→mutate→save critical section and serializes iterations behind a
// single-writer lock. Cross-process writers are a documented non-goal.
type Engine struct {
	mu sync.Mutex

	store     core.Store
	evaluator core.Evaluator
	config    *Config

	rng       *rand.Rand
	crossover *CrossoverOperator
	evolver   *Evolver
	rewriter  Rewriter

	seed           *core.Population
	recoverCorrupt bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSeed supplies the population used when no registry has been committed
// yet, and as the recovery target when corrupt recovery is enabled.
func WithSeed(pop *core.Population) EngineOption {
	return func(e *Engine) {
		e.seed = pop
	}
}

// WithCorruptRecovery allows a corrupt registry to be replaced by the seed
// population at load. The fallback is logged, never silent, and the corrupt
// registry itself is left untouched until the next commit.
func WithCorruptRecovery(enabled bool) EngineOption {
	return func(e *Engine) {
		e.recoverCorrupt = enabled
	}
}

// WithRewriter installs a model-assisted crossover rewriter. Crossover falls
// back to structural splicing whenever the rewriter fails.
func WithRewriter(rw Rewriter) EngineOption {
	return func(e *Engine) {
		e.rewriter = rw
	}
}

// NewEngine creates an engine around a store and an evaluator.
func NewEngine(store core.Store, evaluator core.Evaluator, config *Config, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, errors.New(errors.InvalidInput, "engine requires a store")
	}
	if evaluator == nil {
		return nil, errors.New(errors.InvalidInput, "engine requires an evaluator")
	}

	if config == nil {
		config = DefaultConfig()
	}
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		store:     store,
		evaluator: evaluator,
		config:    config,
	}
	for _, opt := range opts {
		opt(e)
	}

	// Initialize random number generator
	rngSeed := config.RandomSeed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	e.rng = rand.New(rand.NewSource(rngSeed))
	e.crossover = NewCrossoverOperator(e.rng, e.rewriter)
	e.evolver = NewEvolver(config, e.crossover)

	if e.seed != nil {
		seedPop := e.seed.Clone()
		if seedPop.ChampionID == "" {
			seedPop.ChampionID = PickChampion(seedPop)
		}
		if err := seedPop.Validate(); err != nil {
			return nil, errors.Wrap(err, errors.InvalidInput, "seed population is invalid")
		}
		e.seed = seedPop
	}

	return e, nil
}

// Close releases store resources when the backing store holds any.
func (e *Engine) Close() error {
	if closer, ok := e.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// iterationSettings are the per-call knobs of one iteration, resolved from
// the engine config and any overrides.
type iterationSettings struct {
	candidateID       string
	enableEvolution   bool
	evolutionInterval int
	learningRate      float64
}

// IterationOption overrides one engine config knob for a single iteration.
type IterationOption func(*iterationSettings)

// WithCandidate evaluates only the named candidate this iteration instead of
// sweeping the whole population. An unknown id falls back to the champion.
func WithCandidate(id string) IterationOption {
	return func(s *iterationSettings) {
		s.candidateID = id
	}
}

// WithEvolution overrides whether the evolution step may fire.
func WithEvolution(enabled bool) IterationOption {
	return func(s *iterationSettings) {
		s.enableEvolution = enabled
	}
}

// WithEvolutionInterval overrides the evolution interval.
func WithEvolutionInterval(n int) IterationOption {
	return func(s *iterationSettings) {
		s.evolutionInterval = n
	}
}

// WithLearningRate overrides the EMA learning rate.
func WithLearningRate(alpha float64) IterationOption {
	return func(s *iterationSettings) {
		s.learningRate = alpha
	}
}

func (e *Engine) settings(opts ...IterationOption) iterationSettings {
	s := iterationSettings{
		enableEvolution:   e.config.EnableEvolution,
		evolutionInterval: e.config.EvolutionInterval,
		learningRate:      e.config.LearningRate,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.evolutionInterval < 1 {
		s.evolutionInterval = e.config.EvolutionInterval
	}
	if s.learningRate <= 0 || s.learningRate > 1 {
		s.learningRate = e.config.LearningRate
	}
	return s
}

// mustCandidate resolves an id that the engine's own invariants guarantee to
// exist. A miss means a broken invariant, which aborts rather than being
// handled.
func mustCandidate(pop *core.Population, id string) *core.PromptCandidate {
	c, ok := pop.Candidates[id]
	if !ok {
		panic(errors.WithFields(
			errors.New(errors.InvalidReference, "candidate reference does not resolve"),
			errors.Fields{"id": id}))
	}
	return c
}

// LoadRegistry returns the committed population. When no registry has been
// written yet it returns the configured seed population; without a seed the
// store's not-found error is surfaced.
func (e *Engine) LoadRegistry(ctx context.Context) (*core.Population, error) {
	return e.loadPopulation(ctx)
}

func (e *Engine) loadPopulation(ctx context.Context) (*core.Population, error) {
	logger := logging.GetLogger()

	pop, err := e.store.Load(ctx)
	if err == nil {
		return pop, nil
	}

	switch errors.Code(err) {
	case errors.ResourceNotFound:
		if e.seed == nil {
			return nil, err
		}
		logger.Info(ctx, "no committed registry found, starting from the seed population: candidates=%d", e.seed.Size())
		return e.seed.Clone(), nil
	case errors.StoreCorrupt:
		if e.recoverCorrupt && e.seed != nil {
			logger.Warn(ctx, "registry is corrupt, recovering from the seed population: %v", err)
			return e.seed.Clone(), nil
		}
		return nil, err
	default:
		return nil, err
	}
}

// RunIteration executes one optimization step: select, evaluate, update
// weights, optionally evolve, recompute the champion, and commit, all of it
// atomically. A failed or cancelled iteration leaves the prior committed
// state untouched.
//
// Without options every candidate is evaluated against every case and updated
// from its own aggregate. WithCandidate restricts evaluation to one
// candidate.
func (e *Engine) RunIteration(ctx context.Context, iteration int, testData []core.TestCase, opts ...IterationOption) (*IterationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if iteration < 1 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "iteration numbers start at 1"),
			errors.Fields{"iteration": iteration})
	}
	if len(testData) == 0 {
		return nil, errors.New(errors.InvalidInput, "iteration requires at least one test case")
	}

	ctx = logging.WithIteration(ctx, iteration)
	logger := logging.GetLogger()
	settings := e.settings(opts...)

	loaded, err := e.loadPopulation(ctx)
	if err != nil {
		return nil, err
	}
	// Mutate a private copy; the committed state stays intact until Save
	pop := loaded.Clone()

	selected := SelectForEvaluation(pop, settings.candidateID)
	if selected == "" {
		return nil, errors.New(errors.InvalidInput, "population has no candidates to evaluate")
	}
	if settings.candidateID != "" && settings.candidateID != selected {
		logger.Warn(ctx, "explicit candidate not present, falling back to champion: requested=%s, champion=%s",
			settings.candidateID, selected)
	}

	focused := settings.candidateID != ""
	var targets []string
	if focused {
		targets = []string{selected}
	} else {
		targets = RankedIDs(pop)
	}

	logger.Info(ctx, "Starting iteration %d: evaluating=%d, cases=%d, focused=%v",
		iteration, len(targets), len(testData), focused)

	outcomes := e.evaluateCandidates(ctx, pop, targets, testData)

	now := time.Now()
	scores := make([]CandidateScore, 0, len(targets))
	scored := false
	for i, id := range targets {
		candidate := mustCandidate(pop, id)
		cs := CandidateScore{
			CandidateID: id,
			Outcomes:    outcomes[i],
			DomainMeans: DomainMeans(outcomes[i]),
		}

		if aggregate, ok := Aggregate(outcomes[i]); ok {
			if err := ApplyUpdate(candidate, iteration, aggregate, settings.learningRate, now); err != nil {
				return nil, err
			}
			a := aggregate
			cs.Aggregate = &a
			scored = true
			logger.CandidateScored(ctx, id, aggregate, candidate.Weight)
		} else {
			logger.Warn(ctx, "every case failed for candidate %s, skipping its weight update", id)
		}

		cs.Weight = candidate.Weight
		scores = append(scores, cs)
	}

	if !scored {
		logger.Warn(ctx, "iteration %d obtained no scores at all, committing as a no-op", iteration)
	}

	var evolution *EvolutionResult
	if scored && e.evolver.ShouldEvolve(iteration, pop, settings.enableEvolution, settings.evolutionInterval) {
		child, pruned, err := e.evolver.Evolve(ctx, pop)
		if err != nil {
			return nil, err
		}
		evolution = &EvolutionResult{
			Evolved:    []string{child.ID},
			Generation: child.Generation,
			Pruned:     pruned,
		}
		logger.Info(ctx, "Evolution produced candidate %s: generation=%d, parents=%v, weight=%.4f",
			child.ID, child.Generation, child.Parents, child.Weight)
		if len(pruned) > 0 {
			logger.Info(ctx, "Pruned %d candidate(s) to hold the population bound %d: %v",
				len(pruned), e.config.MaxPopulation, pruned)
		}
	}

	pop.ChampionID = PickChampion(pop)

	// Cancellation before the commit leaves no observable effect
	if err := errors.CheckContext(ctx); err != nil {
		return nil, err
	}
	if err := pop.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ValidationFailed, "refusing to commit an invalid population")
	}
	if err := e.store.Save(ctx, pop); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Iteration %d committed: champion=%s, population=%d",
		iteration, pop.ChampionID, pop.Size())

	return &IterationResult{
		Iteration:          iteration,
		GlobalPrompt:       pop.ChampionID,
		Evaluated:          targets,
		PerCandidateScores: scores,
		Evolution:          evolution,
	}, nil
}

// evaluateCandidates scores every (candidate, case) pair with bounded
// parallelism. Each pair writes its own result slot, so the merge is
// deterministic no matter the completion order.
func (e *Engine) evaluateCandidates(ctx context.Context, pop *core.Population, targets []string, testData []core.TestCase) [][]core.EvaluationOutcome {
	results := make([][]core.EvaluationOutcome, len(targets))
	for i := range results {
		results[i] = make([]core.EvaluationOutcome, len(testData))
	}

	p := pool.New().WithMaxGoroutines(e.config.MaxConcurrency)
	for i, id := range targets {
		candidate := mustCandidate(pop, id)
		caseCtx := logging.WithCandidate(ctx, candidate.ID)
		template := candidate.Template

		for j, tc := range testData {
			i, j, tc := i, j, tc // Capture loop variables
			p.Go(func() {
				outcome := core.EvaluationOutcome{CaseID: tc.ID, Domain: tc.Domain}
				if err := errors.CheckContext(caseCtx); err != nil {
					outcome.Err = err
				} else if score, err := e.evaluator.Evaluate(caseCtx, template, tc); err != nil {
					outcome.Err = err
				} else {
					outcome.Score = ClampScore(score)
				}
				results[i][j] = outcome
			})
		}
	}
	p.Wait()

	return results
}
