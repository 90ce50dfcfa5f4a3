// Package fpo is a federated prompt optimization engine: it maintains a
// persistent population of prompt template candidates, scores them against an
// external quality oracle, and evolves new candidates through crossover.
//
// The engine keeps a fitness weight per candidate, updated as an exponential
// moving average of oracle scores, and designates the highest-weight candidate
// as the population's champion (the "global prompt"). On a configurable
// interval it breeds the two best candidates into an offspring template,
// stamps its lineage, and prunes the population back inside a bound. Every
// iteration commits as one atomic transaction: either the whole set of
// mutations (weight updates, a possible new candidate, the recomputed
// champion) is persisted, or none of it is.
//
// Key Components:
//
//   - pkg/core: The domain model. PromptCandidate, Population and its
//     structural invariants, plus the Evaluator and Store interfaces the
//     engine consumes.
//
//   - pkg/fpo: The engine itself. Deterministic champion selection, EMA
//     weight updates with federated per-case aggregation, crossover and
//     mutation operators, the evolution trigger with bounded pruning, and the
//     iteration controller that runs the whole pipeline as a single critical
//     section.
//
//   - pkg/store: Registry persistence. An atomic JSON file store (staged
//     write plus rename) and a SQLite store with transaction-scoped saves.
//     Both validate on load and never silently discard a corrupt registry.
//
//   - pkg/llm: Anthropic-backed collaborators. A scoring oracle implementing
//     core.Evaluator and an optional crossover rewriter that blends parent
//     templates, with structural splicing as the fallback.
//
//   - pkg/cache: Score memoization in front of the evaluator, keyed by
//     template and case content, with in-memory LRU and SQLite backends.
//
//   - pkg/datasets: Test-case loaders for JSON and Parquet files.
//
//   - pkg/config, pkg/logging, pkg/errors: YAML plus environment
//     configuration with validation, the leveled context-aware logger, and
//     the typed error taxonomy (StoreCorrupt, EvaluationFailed,
//     InvalidReference, ...) the rest of the module reports through.
//
// A cobra CLI lives in cmd/fpo-cli with seed, run and status commands.
//
// Example usage:
//
//	seed := core.NewPopulation("1.0", []string{"news", "sports"})
//	_ = seed.Add(core.NewSeedCandidate("concise", "Summarize the key facts."))
//	_ = seed.Add(core.NewSeedCandidate("detailed", "Explain the story in depth."))
//
//	engine, err := fpo.NewEngine(
//		store.NewFileStore("registry.json"),
//		evaluator, // any core.Evaluator
//		fpo.DefaultConfig(),
//		fpo.WithSeed(seed),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	result, err := engine.RunIteration(ctx, 1, cases)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("champion:", result.GlobalPrompt)
//
// The population advances through a strictly linear sequence of committed
// states, one per completed iteration. Iterations never run concurrently
// against the same population, and a failed or cancelled iteration leaves the
// prior committed state untouched.
package fpo
