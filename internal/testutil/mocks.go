package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/promptpool/fpo/pkg/core"
	"github.com/promptpool/fpo/pkg/errors"
)

// MockEvaluator is a mock implementation of core.Evaluator.
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, template string, tc core.TestCase) (float64, error) {
	args := m.Called(ctx, template, tc)
	return args.Get(0).(float64), args.Error(1)
}

// ScriptedEvaluator returns fixed scores keyed by candidate template text,
// with optional per-case failures. It counts calls for assertions.
type ScriptedEvaluator struct {
	mu        sync.Mutex
	Scores    map[string]float64 // template -> score
	FailCases map[string]error   // case id -> error returned instead
	FailAll   error              // when set, every call fails with it
	Calls     int
}

// NewScriptedEvaluator builds an evaluator scoring each template as given.
func NewScriptedEvaluator(scores map[string]float64) *ScriptedEvaluator {
	return &ScriptedEvaluator{Scores: scores}
}

func (s *ScriptedEvaluator) Evaluate(ctx context.Context, template string, tc core.TestCase) (float64, error) {
	s.mu.Lock()
	s.Calls++
	s.mu.Unlock()

	if s.FailAll != nil {
		return 0, s.FailAll
	}
	if err, ok := s.FailCases[tc.ID]; ok {
		return 0, err
	}
	if score, ok := s.Scores[template]; ok {
		return score, nil
	}
	return 0, errors.WithFields(
		errors.New(errors.EvaluationFailed, "no scripted score for template"),
		errors.Fields{"template": template, "case": tc.ID})
}

// CallCount returns how many evaluations were attempted.
func (s *ScriptedEvaluator) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls
}

// StubRewriter returns a fixed blend or error for crossover tests.
type StubRewriter struct {
	Blended string
	Err     error
	Calls   int
}

func (r *StubRewriter) Blend(ctx context.Context, parentA, parentB string) (string, error) {
	r.Calls++
	if r.Err != nil {
		return "", r.Err
	}
	return r.Blended, nil
}

// MemStore is an in-memory core.Store. Saves deep-copy the population so
// later engine mutations cannot leak into the "committed" state, and loads
// hand back a fresh copy each time.
type MemStore struct {
	mu        sync.Mutex
	committed *core.Population
	LoadErr   error
	SaveErr   error
	Saves     int
	Loads     int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// NewMemStoreWith creates an in-memory store seeded with a committed
// population.
func NewMemStoreWith(pop *core.Population) *MemStore {
	return &MemStore{committed: pop.Clone()}
}

func (m *MemStore) Load(ctx context.Context) (*core.Population, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Loads++
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.committed == nil {
		return nil, errors.New(errors.ResourceNotFound, "no registry committed")
	}
	return m.committed.Clone(), nil
}

func (m *MemStore) Save(ctx context.Context, pop *core.Population) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.committed = pop.Clone()
	m.Saves++
	return nil
}

// Committed returns a copy of the last committed population, or nil.
func (m *MemStore) Committed() *core.Population {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.committed == nil {
		return nil
	}
	return m.committed.Clone()
}
