package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SuiteOptions controls RunSuite.
type SuiteOptions struct {
	// Filter is a glob matched against scenario file names without extension.
	Filter string

	// Update rewrites golden files instead of comparing against them.
	Update bool
}

// ScenarioOutcome is the result of one scenario file in a suite.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated", or "" when no golden file exists
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult summarizes a suite run.
type SuiteResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// RunSuite runs every scenario file under dir.
//
// For each scenario:
// 1. Load the scenario (spec paths relative to the file)
// 2. Run it via Run
// 3. Compare against, or with opts.Update rewrite, its golden file
// 4. Collect the outcome
//
// Returns an error only if dir cannot be scanned.
func RunSuite(dir string, opts SuiteOptions) (*SuiteResult, error) {
	files, err := FindScenarios(dir, opts.Filter)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{
		Scenarios: make([]ScenarioOutcome, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		outcome := runScenarioFile(file, opts)
		if outcome.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, outcome)
	}
	return result, nil
}

func runScenarioFile(file string, opts SuiteOptions) ScenarioOutcome {
	outcome := ScenarioOutcome{Name: filepath.Base(file), Path: file}
	fail := func(format string, args ...any) ScenarioOutcome {
		outcome.Pass = false
		outcome.Errors = append(outcome.Errors, fmt.Sprintf(format, args...))
		return outcome
	}

	scenario, err := LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	outcome.Name = scenario.Name

	result, err := Run(scenario)
	if err != nil {
		return fail("execution failed: %v", err)
	}
	outcome.Pass = result.Pass
	outcome.Errors = result.Errors

	golden := GoldenPath(file)
	if opts.Update {
		if err := UpdateGolden(golden, scenario.Name, result); err != nil {
			return fail("failed to update golden file: %v", err)
		}
		outcome.Golden = "updated"
		return outcome
	}

	if _, err := os.Stat(golden); os.IsNotExist(err) {
		return outcome
	}
	match, err := CompareGolden(golden, scenario.Name, result)
	if err != nil {
		return fail("golden comparison failed: %v", err)
	}
	if !match {
		return fail("snapshot does not match golden file (run with --update to regenerate)")
	}
	outcome.Golden = "match"
	return outcome
}

// FindScenarios finds all YAML scenario files under dir, optionally
// filtered by a glob on the file name without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		// Only process .yaml and .yml files
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan scenarios: %w", err)
	}
	return files, nil
}
