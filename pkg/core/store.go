package core

import "context"

// Store persists the candidate registry.
//
// Load returns the committed population, a ResourceNotFound error when no
// registry has been written yet, or StoreCorrupt when the persisted content
// does not pass structural validation. A corrupt registry is never discarded
// or rewritten by Load.
//
// Save commits the population atomically: a crash mid-save must leave either
// the prior committed state or the new one, never a half-written registry.
// Implementations serialize saves with an in-process single-writer lock;
// cross-process writers are a documented non-goal.
type Store interface {
	Load(ctx context.Context) (*Population, error)
	Save(ctx context.Context, pop *Population) error
}
