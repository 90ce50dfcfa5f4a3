package core

// TestCase is one labeled evaluation input. Domain tags group cases into the
// categories the population is optimized across ("news", "sports", ...).
type TestCase struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	Input     string `json:"input"`
	Reference string `json:"reference,omitempty"`
}

// EvaluationOutcome is the tagged per-case result of one evaluator call:
// either a score in [0,1] or the error that replaced it.
type EvaluationOutcome struct {
	CaseID string
	Domain string
	Score  float64
	Err    error
}

// Failed reports whether the case produced an error marker instead of a score.
func (o EvaluationOutcome) Failed() bool {
	return o.Err != nil
}
