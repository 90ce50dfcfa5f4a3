// Package datasets loads evaluation cases from JSON and Parquet files. Both
// loaders return the same []core.TestCase shape the engine consumes, so a
// case file exported from a spreadsheet and one pulled off Hugging Face feed
// the same iteration pipeline.
package datasets

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/promptpool/fpo/pkg/core"
	errs "github.com/promptpool/fpo/pkg/errors"
)

// LoadJSONCases reads an array of test cases from a JSON file. Each element
// carries id, domain, input and an optional reference answer.
func LoadJSONCases(path string) ([]core.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.WithFields(
				errs.Wrap(err, errs.ResourceNotFound, "case file does not exist"),
				errs.Fields{"path": path})
		}
		return nil, errs.WithFields(
			errs.Wrap(err, errs.InvalidInput, "failed to read case file"),
			errs.Fields{"path": path})
	}

	var cases []core.TestCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, errs.WithFields(
			errs.Wrap(err, errs.InvalidInput, "case file is not a JSON case array"),
			errs.Fields{"path": path})
	}

	if err := validateCases(cases); err != nil {
		return nil, errs.WithFields(err, errs.Fields{"path": path})
	}
	return cases, nil
}

// validateCases rejects case sets the engine cannot evaluate: no cases at
// all, blank ids or inputs, or two cases sharing an id.
func validateCases(cases []core.TestCase) error {
	if len(cases) == 0 {
		return errs.New(errs.InvalidInput, "case file holds no test cases")
	}

	seen := make(map[string]bool, len(cases))
	for i, tc := range cases {
		if strings.TrimSpace(tc.ID) == "" {
			return errs.WithFields(
				errs.New(errs.InvalidInput, "test case has no id"),
				errs.Fields{"index": i})
		}
		if seen[tc.ID] {
			return errs.WithFields(
				errs.New(errs.InvalidInput, "duplicate test case id"),
				errs.Fields{"id": tc.ID})
		}
		seen[tc.ID] = true
		if strings.TrimSpace(tc.Input) == "" {
			return errs.WithFields(
				errs.New(errs.InvalidInput, "test case has no input"),
				errs.Fields{"id": tc.ID})
		}
	}
	return nil
}
